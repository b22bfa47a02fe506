package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store reads and writes Settings to a single file and keeps the last
// loaded snapshot. Files ending in .yaml or .yml are YAML, anything else JSON.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewStore creates a Store for path initialised with DefaultSettings.
func NewStore(path string) *Store {
	return &Store{path: path, settings: DefaultSettings()}
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the latest settings snapshot.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Load reads the settings file. Keys missing from the file keep their
// default values; a missing file yields the defaults without error.
func (s *Store) Load() (Settings, error) {
	loaded := DefaultSettings()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.replace(loaded)
		return loaded, nil
	}
	if err != nil {
		return s.Current(), fmt.Errorf("read settings: %w", err)
	}

	if s.isYAML() {
		err = yaml.Unmarshal(data, &loaded)
	} else if len(strings.TrimSpace(string(data))) > 0 {
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return s.Current(), fmt.Errorf("parse settings %s: %w", s.path, err)
	}

	s.replace(loaded)
	return loaded, nil
}

// Save writes settings atomically (temp file + rename) and makes them current.
func (s *Store) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if s.isYAML() {
		data, err = yaml.Marshal(settings)
	} else {
		data, err = json.MarshalIndent(settings, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename settings: %w", err)
	}

	s.replace(settings)
	return nil
}

func (s *Store) replace(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *Store) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}
