// Package store holds the persisted storage slots records are mirrored to.
// A slot is a single string-keyed value that is always overwritten whole.
package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Makepad-fr/focusflow/internal/store/jsonstore"
	"github.com/Makepad-fr/focusflow/internal/store/sqlitestore"
)

// Slot is a durable key-value slot.
type Slot interface {
	// Get returns the value under key; ok is false when nothing was stored yet.
	Get(key string) (value []byte, ok bool, err error)
	// Set overwrites the value under key.
	Set(key string, value []byte) error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const sqliteFileName = "focusflow.db"

// Open returns the slot for the named backend rooted at dir. The returned
// close func must be called when done; it is never nil.
func Open(backend, dir string) (Slot, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		s, err := jsonstore.New(dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendSQLite:
		s, err := sqlitestore.Open(sqlitestore.Path(dir, sqliteFileName))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendMemory:
		return NewMemory(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage backend %q", backend)
}

// Memory is a map-backed Slot. Values are copied in and out.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
