package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"testrig/pkg/logging"

	"gopkg.in/yaml.v3"
)

// ErrSettingNotFound is returned by Load when no settings file exists.
var ErrSettingNotFound = errors.New("setting not found")

// Storage persists YAML settings files for cases and modules. Files live at
// <root>/<kind>/<name>.yaml; an empty kind stores directly under root.
type Storage struct {
	mu   sync.RWMutex
	root string
}

// NewStorage creates a Storage rooted at dir.
func NewStorage(dir string) *Storage {
	return &Storage{root: dir}
}

// Root returns the directory the storage writes to.
func (s *Storage) Root() string {
	return s.root
}

// Save stores data for the given kind and name.
func (s *Storage) Save(kind, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(s.path(kind, name), data)
}

// Load retrieves the raw settings file. A missing file yields an error
// wrapping ErrSettingNotFound.
func (s *Storage) Load(kind, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.path(kind, name)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("setting %s: %w", filePath, ErrSettingNotFound)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Loaded %s from %s", name, filePath)
	return data, nil
}

// LoadOrInit decodes the settings file into v. When the file does not exist
// the current contents of v are written out as the initial settings, so a
// freshly registered case leaves an editable file behind.
func (s *Storage) LoadOrInit(kind, name string, v any) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.path(kind, name)
	data, err := os.ReadFile(filePath)
	if err == nil {
		if err := yaml.Unmarshal(data, v); err != nil {
			return NewConfigurationError(filePath, "parse", err.Error())
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	data, err = yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode default settings for %s: %w", name, err)
	}
	logging.Info("Storage", "Initialising settings %s with defaults", filePath)
	return s.write(filePath, data)
}

// Delete removes the settings file for kind and name.
func (s *Storage) Delete(kind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.path(kind, name)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("setting %s: %w", filePath, ErrSettingNotFound)
		}
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// List returns the sorted names of all settings files of a kind.
func (s *Storage) List(kind string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.root, kind)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		files, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s files: %w", pattern, err)
		}
		for _, f := range files {
			base := filepath.Base(f)
			names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) write(filePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(filePath), err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	logging.Debug("Storage", "Saved %s", filePath)
	return nil
}

func (s *Storage) path(kind, name string) string {
	return filepath.Join(s.root, kind, sanitizeFilename(name)+".yaml")
}

// sanitizeFilename maps a setting name onto a safe file base name. A trailing
// .yaml, .yml or .json extension is dropped first so list entries may name
// the file either way.
func sanitizeFilename(name string) string {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		name = strings.TrimSuffix(name, ext)
	}

	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, " _")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
