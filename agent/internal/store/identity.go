package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotLinked marks operations that need device credentials on a device
// that has none yet.
var ErrNotLinked = errors.New("device not linked")

// Identity is the device credential set written at link time. It is loaded
// once per process start and only replaced by re-linking.
type Identity struct {
	ServerURL   string    `json:"serverUrl"`
	DeviceID    string    `json:"deviceId"`
	DeviceToken string    `json:"deviceToken"`
	LinkedAt    time.Time `json:"linkedAt"`
}

// IdentityStore persists the identity as a JSON file restricted to the
// owning user.
type IdentityStore struct {
	path string
}

func NewIdentityStore(baseDir string) *IdentityStore {
	return &IdentityStore{path: filepath.Join(baseDir, "config.json")}
}

// Path returns the identity file location, for watchers.
func (s *IdentityStore) Path() string { return s.path }

// Load reads the identity. A missing file means "not linked" and returns
// (nil, nil). A file that does not parse or lacks credentials is an error;
// it is never silently treated as unlinked.
func (s *IdentityStore) Load() (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity %s: %w", s.path, err)
	}
	if id.ServerURL == "" || id.DeviceID == "" || id.DeviceToken == "" {
		return nil, fmt.Errorf("identity %s is incomplete", s.path)
	}
	return &id, nil
}

// Save writes the identity with owner-only permissions. The write goes
// through a temp file and rename so a crash never leaves a half-written
// credential file behind.
func (s *IdentityStore) Save(id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir identity dir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace identity: %w", err)
	}
	return nil
}

// Clear removes the identity file. Missing file is not an error.
func (s *IdentityStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
