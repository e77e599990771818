// Package credstore persists credentials as a small key/value map that
// survives process restarts.
package credstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Well-known keys used by the session manager.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store is durable key/value persistence for credentials. Implementations
// must provide read-after-write consistency for sequential access.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores or replaces the value for key.
	Set(key, value string) error
	// Remove deletes the value for key; removing an absent key is not an error.
	Remove(key string) error
}

// FileStore keeps the map in a single JSON file with owner-only permissions.
type FileStore struct {
	path string
}

// DefaultDir returns the per-user config directory for stored credentials,
// honoring XDG_CONFIG_HOME.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "freshkeep")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "freshkeep")
}

// NewFileStore creates a store backed by dir/credentials.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "credentials.json")}
}

func (s *FileStore) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *FileStore) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Get returns the stored value for key.
func (s *FileStore) Get(key string) (string, bool, error) {
	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set stores the value for key.
func (s *FileStore) Set(key, value string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

// Remove deletes the value for key.
func (s *FileStore) Remove(key string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}
