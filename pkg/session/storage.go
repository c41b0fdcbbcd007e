package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const sessionFile = "session.json"

// Session is the authenticated principal kept across runs.
type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Storage persists the session between runs.
type Storage interface {
	// Load returns the stored session, or nil when none is stored.
	Load() (*Session, error)
	Save(s Session) error
	Clear() error
}

// FileStorage keeps the session as JSON in a file readable only by the owner.
type FileStorage struct {
	Path string
	mu   sync.Mutex
}

// NewFileStorage stores the session in dir/session.json.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Path: filepath.Join(dir, sessionFile)}
}

func (fs *FileStorage) Load() (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var s Session
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode session file %s: %w", fs.Path, err)
	}
	if s.UserID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (fs *FileStorage) Save(s Session) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.Path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	f, err := os.OpenFile(fs.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

func (fs *FileStorage) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
