// Package session persists authenticated-session token sets per identity
// so a prior login can be restored without going through the login form.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Cookie is one opaque session token.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

// Record is the persisted session state for one identity. One record per
// identity, overwritten on refresh.
type Record struct {
	Identity string    `json:"identity"`
	Cookies  []Cookie  `json:"cookies"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store is the session persistence interface injected into the login
// state machine.
type Store interface {
	// Save persists a fresh record for the identity, replacing any
	// previous one.
	Save(record *Record) error

	// Load returns the record for the identity, or (nil, nil) when none
	// exists.
	Load(identity string) (*Record, error)

	// Clear removes the record for the identity. Clearing a missing
	// record is not an error.
	Clear(identity string) error
}

// FileStore keeps one JSON file per identity under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a session store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(identity string) string {
	return filepath.Join(s.dir, fmt.Sprintf("session_%s.json", identity))
}

// Save writes the record atomically: temp file first, then rename.
func (s *FileStore) Save(record *Record) error {
	if record == nil || record.Identity == "" {
		return fmt.Errorf("session record requires an identity")
	}
	record.SavedAt = time.Now()

	path := s.path(record.Identity)
	tempPath := path + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load reads the record for the identity.
func (s *FileStore) Load(identity string) (*Record, error) {
	file, err := os.Open(s.path(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var record Record
	if err := json.NewDecoder(file).Decode(&record); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}
	return &record, nil
}

// Clear removes the record for the identity.
func (s *FileStore) Clear(identity string) error {
	err := os.Remove(s.path(identity))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
