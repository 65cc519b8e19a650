// Package prefs persists the greeter's small cross-run state: the last
// user that was selected.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hnrobert/lumgreet/internal/hostfs"
)

type Preference struct {
	LastUsername string    `json:"last_username,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is <cacheDir>/state, with cacheDir defaulting to
// $HOME/.cache/lumgreet (the greeter user's home, /var/lib/lightdm on most
// distributions).
func DefaultPath(cacheDir string) string {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.TempDir()
		}
		cacheDir = filepath.Join(home, hostfs.DefaultCacheSubdir)
	}
	return filepath.Join(cacheDir, hostfs.PreferenceFileName)
}

func (s *Store) Path() string { return s.path }

// Ensure creates the cache directory and an empty state file if missing.
func (s *Store) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := hostfs.EnsureDir(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return hostfs.EnsureFile(s.path, 0600)
}

// Load returns the stored preference. A missing or empty file is the zero
// Preference, not an error.
func (s *Store) Load() (Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := hostfs.ReadFileOptional(s.path)
	if err != nil {
		return Preference{}, err
	}
	if len(b) == 0 {
		return Preference{}, nil
	}
	var p Preference
	if err := json.Unmarshal(b, &p); err != nil {
		return Preference{}, err
	}
	return p, nil
}

func (s *Store) Save(p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := hostfs.EnsureDir(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return hostfs.WriteFileAtomic(s.path, b, 0600)
}
