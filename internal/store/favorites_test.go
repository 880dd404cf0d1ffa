package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DBFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndList(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("work-1"))
	require.NoError(t, s.Add("terminal-2"))

	names, err := s.List()
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Contains(t, names, "work-1")
	assert.Contains(t, names, "terminal-2")
}

func TestAddIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("work-1"))
	require.NoError(t, s.Add("work-1"))

	names, err := s.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("work-1"))
	require.NoError(t, s.Remove("work-1"))

	fav, err := s.IsFavorite("work-1")
	require.NoError(t, err)
	assert.False(t, fav)

	// removing again is a no-op
	require.NoError(t, s.Remove("work-1"))
}

func TestToggle(t *testing.T) {
	s := openTestStore(t)

	now, err := s.Toggle("work-1")
	require.NoError(t, err)
	assert.True(t, now)

	now, err = s.Toggle("work-1")
	require.NoError(t, err)
	assert.False(t, now)

	fav, err := s.IsFavorite("work-1")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("alive"))
	require.NoError(t, s.Add("gone-1"))
	require.NoError(t, s.Add("gone-2"))

	removed, err := s.Prune([]string{"alive", "unrelated"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alive"}, names)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Add("work-1"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	fav, err := s2.IsFavorite("work-1")
	require.NoError(t, err)
	assert.True(t, fav)
}
