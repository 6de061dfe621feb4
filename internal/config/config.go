package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "focusflow"
	configFile = "config.yaml"
)

// Variants. Both share one record shape; they differ in storage key and in
// what the "load sample" action does.
const (
	VariantTodo  = "todo"
	VariantRoast = "roast"
)

const (
	DefaultSampleURL = "https://jsonplaceholder.typicode.com/todos?_limit=4"
	DefaultProbeURL  = "https://jsonplaceholder.typicode.com/posts/1"
)

// Config holds all focusflow settings.
type Config struct {
	Variant string `yaml:"variant"`
	DataDir string `yaml:"data_dir"` // empty: working directory
	Backend string `yaml:"backend"`  // json | sqlite | memory
	Theme   string `yaml:"theme"`    // classic | neon | mono

	SampleURL     string        `yaml:"sample_url"`
	ProbeURL      string        `yaml:"probe_url"`
	SampleTimeout time.Duration `yaml:"sample_timeout"`
	RoastDelay    time.Duration `yaml:"roast_delay"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Variant:       VariantTodo,
		Backend:       "json",
		Theme:         "classic",
		SampleURL:     DefaultSampleURL,
		ProbeURL:      DefaultProbeURL,
		SampleTimeout: 10 * time.Second,
		RoastDelay:    800 * time.Millisecond,
		LogLevel:      "warn",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/focusflow/config.yaml, falling back to
// ~/.config/focusflow/config.yaml.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName, configFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FOCUSFLOW_VARIANT"); v != "" {
		c.Variant = v
	}
	if v := os.Getenv("FOCUSFLOW_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FOCUSFLOW_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("FOCUSFLOW_THEME"); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("FOCUSFLOW_SAMPLE_URL"); v != "" {
		c.SampleURL = v
	}
	if v := os.Getenv("FOCUSFLOW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate normalizes and checks the enumerated fields.
func (c *Config) Validate() error {
	c.Variant = strings.ToLower(strings.TrimSpace(c.Variant))
	switch c.Variant {
	case "":
		c.Variant = VariantTodo
	case VariantTodo, VariantRoast:
	default:
		return fmt.Errorf("unknown variant %q (want %s or %s)", c.Variant, VariantTodo, VariantRoast)
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.SampleTimeout <= 0 {
		c.SampleTimeout = DefaultConfig().SampleTimeout
	}
	if c.RoastDelay < 0 {
		c.RoastDelay = 0
	}
	return nil
}

// StorageKey is the slot key records of the configured variant live under.
func (c *Config) StorageKey() string {
	if c.Variant == VariantRoast {
		return "focusflow.roasts"
	}
	return "focusflow.tasks"
}
