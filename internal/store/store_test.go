package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackends(t *testing.T) {
	for _, backend := range []string{"", "json", "JSON", "sqlite", "memory"} {
		t.Run(backend, func(t *testing.T) {
			s, closeFn, err := Open(backend, t.TempDir())
			require.NoError(t, err)
			defer closeFn()

			require.NoError(t, s.Set("focusflow.tasks", []byte(`[]`)))
			v, ok, err := s.Get("focusflow.tasks")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `[]`, string(v))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, closeFn, err := Open("mongo", t.TempDir())
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestMemoryCopies(t *testing.T) {
	m := NewMemory()
	in := []byte("abc")
	require.NoError(t, m.Set("k", in))
	in[0] = 'x'

	out, ok, err := m.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(out))

	out[0] = 'y'
	again, _, _ := m.Get("k")
	assert.Equal(t, "abc", string(again))
}
