// Package settings persists integration settings for the UI layer, the
// equivalent of browser local storage for non-browser clients.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Integration holds ticket-system integration settings the UI keeps
// between runs.
type Integration struct {
	Enabled    bool   `json:"enabled"`
	BaseURL    string `json:"baseUrl"`
	ProjectKey string `json:"projectKey"`
}

// Store loads and saves one Integration configuration.
type Store interface {
	Load() (Integration, error)
	Save(Integration) error
}

// FileStore keeps settings in a JSON file. A missing file loads as
// zero-value settings rather than an error.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads settings from disk.
func (s *FileStore) Load() (Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Integration{}, nil
	}
	if err != nil {
		return Integration{}, fmt.Errorf("read settings: %w", err)
	}

	var settings Integration
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Integration{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Save writes settings to disk, creating parent directories as needed.
func (s *FileStore) Save(settings Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
