package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsZero(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "state"))
	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Preference{}, p)
}

func TestEnsureThenLoadEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache", "state"))
	require.NoError(t, s.Ensure())

	st, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Zero(t, st.Size())

	p, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, p.LastUsername)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "state")
	require.NoError(t, NewStore(path).Save(Preference{LastUsername: "alice"}))

	// A fresh store models the next greeter run.
	p, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", p.LastUsername)
	assert.False(t, p.UpdatedAt.IsZero())

	require.NoError(t, NewStore(path).Save(Preference{LastUsername: "bob"}))
	p, err = NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "bob", p.LastUsername)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(path, []byte("[greeter]\nlast-user=alice\n"), 0600))
	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "/var/cache/x/state", DefaultPath("/var/cache/x"))

	t.Setenv("HOME", "/var/lib/lightdm")
	assert.Equal(t, "/var/lib/lightdm/.cache/lumgreet/state", DefaultPath(""))
}
