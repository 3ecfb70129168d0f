package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"live-transcriber/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the settings file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing. Fields left
// empty in the file fall back to their defaults.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, err
	}

	var cfg domain.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return withDefaults(cfg), nil
}

// Save validates and writes settings as indented JSON, creating parent
// directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Validate rejects model sizes and languages the engine does not offer.
func Validate(cfg domain.Settings) error {
	if cfg.ModelDir == "" {
		return errors.New("model directory is required")
	}
	if !domain.IsModelSize(cfg.ModelSize) {
		return fmt.Errorf("unsupported model size %q", cfg.ModelSize)
	}
	if !domain.IsLanguage(cfg.Language) {
		return fmt.Errorf("unsupported language %q", cfg.Language)
	}
	return nil
}

func withDefaults(cfg domain.Settings) domain.Settings {
	def := DefaultSettings()
	if cfg.ModelDir == "" {
		cfg.ModelDir = def.ModelDir
	}
	if cfg.ModelSize == "" {
		cfg.ModelSize = def.ModelSize
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	return cfg
}
