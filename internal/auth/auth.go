// Package auth keeps the bearer token focusflow sends to the sample source.
// The token lives in a small YAML keyring next to the config file and can be
// overridden per process with FOCUSFLOW_TOKEN.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvToken = "FOCUSFLOW_TOKEN"
	FileName = "credentials.yaml"
)

var ErrEmptyToken = errors.New("empty token")

// Source tells where the active credential came from.
type Source string

const (
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

// Credential is one stored token.
type Credential struct {
	Token     string     `yaml:"token"`
	SavedAt   time.Time  `yaml:"saved_at"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`

	Source Source `yaml:"-"`
}

// Expired reports whether the credential carries an expiry at or before now.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Claims returns the unverified JWT payload; ok is false for opaque tokens.
func (c Credential) Claims() (payload string, ok bool) {
	parts := strings.Split(c.Token, ".")
	if len(parts) != 3 {
		return "", false
	}
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return "", false
	}
	return string(dec), true
}

func (c Credential) jwtExpiry() *time.Time {
	p, ok := c.Claims()
	if !ok {
		return nil
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal([]byte(p), &claims); err != nil || claims.Exp == 0 {
		return nil
	}
	t := time.Unix(claims.Exp, 0)
	return &t
}

// Keyring reads and writes the credential file in one directory.
type Keyring struct {
	path string
	now  func() time.Time
}

// NewKeyring returns a keyring storing FileName under dir.
func NewKeyring(dir string) *Keyring {
	return &Keyring{path: filepath.Join(dir, FileName), now: time.Now}
}

func (k *Keyring) Path() string { return k.path }

// Current returns the active credential, or nil when there is none.
// The environment wins over the file.
func (k *Keyring) Current() (*Credential, error) {
	if env := normalize(os.Getenv(EnvToken)); env != "" {
		c := Credential{Token: env, Source: SourceEnv}
		c.ExpiresAt = c.jwtExpiry()
		return &c, nil
	}

	b, err := os.ReadFile(k.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credential
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", k.path, err)
	}
	c.Token = normalize(c.Token)
	if c.Token == "" {
		return nil, nil
	}
	c.Source = SourceFile
	return &c, nil
}

// Save stores token, taking its expiry from the JWT exp claim when present.
func (k *Keyring) Save(token string) (Credential, error) {
	c := Credential{Token: normalize(token), SavedAt: k.now().UTC(), Source: SourceFile}
	if c.Token == "" {
		return Credential{}, ErrEmptyToken
	}
	c.ExpiresAt = c.jwtExpiry()

	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return Credential{}, fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return Credential{}, fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(k.path, data, 0o600); err != nil {
		return Credential{}, fmt.Errorf("write credentials: %w", err)
	}
	return c, nil
}

// Delete removes the credential file. removed is false when there was none.
func (k *Keyring) Delete() (removed bool, err error) {
	err = os.Remove(k.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove credentials: %w", err)
	}
	return true, nil
}

// Bearer returns the active, unexpired token or "".
func (k *Keyring) Bearer() string {
	c, err := k.Current()
	if err != nil || c == nil || c.Expired(k.now()) {
		return ""
	}
	return c.Token
}

// normalize trims whitespace and an optional "Bearer " prefix.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "bearer") && (len(s) == 6 || s[6] == ' ') {
		s = strings.TrimSpace(s[6:])
	}
	return s
}
