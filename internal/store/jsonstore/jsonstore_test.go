package jsonstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingKey(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	v, ok, err := s.Get("focusflow.tasks")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestSetThenGet(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("focusflow.tasks", []byte(`[{"id":"a","title":"Buy milk"}]`)))

	v, ok, err := s.Get("focusflow.tasks")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"a","title":"Buy milk"}]`, string(v))

	// written indented, human-readable
	raw, err := os.ReadFile(filepath.Join(dir, "focusflow.tasks.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {")
}

func TestSetOverwrites(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("k", []byte(`[1,2,3]`)))
	require.NoError(t, s.Set("k", []byte(`[]`)))

	v, _, err := s.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v))
}

func TestSetKeepsInvalidJSONVerbatim(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("k", []byte(`[{"id":`)))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":`, string(v))
}

func TestSetCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte(`{}`)))

	_, err = os.Stat(filepath.Join(dir, "k.json"))
	assert.NoError(t, err)
}

func TestInvalidKeys(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		_, _, err := s.Get(key)
		assert.Error(t, err, key)
		assert.Error(t, s.Set(key, []byte(`{}`)), key)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}
