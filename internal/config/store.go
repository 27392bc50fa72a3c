package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
)

// DefaultFileName is the config file looked up next to the executable.
const DefaultFileName = "config.yaml"

// Store persists Settings as YAML at Path.
type Store struct {
	Path string
}

// NewStore creates a store for path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the settings. A missing file yields defaults and no error. An
// unreadable or corrupt file yields defaults and a ConfigLoadFailed error
// the caller may log and ignore. Fields outside their range fall back to
// their defaults individually.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), backuperr.New(backuperr.ConfigLoadFailed, "read config", s.Path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), backuperr.New(backuperr.ConfigLoadFailed, "parse config", s.Path, err)
	}
	return cfg.sanitize(), nil
}

// Save writes the settings atomically: a temporary file in the same
// directory is synced and then renamed over Path.
func (s *Store) Save(cfg Settings) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return backuperr.New(backuperr.ConfigSaveFailed, "encode config", s.Path, err)
	}
	if err := enc.Close(); err != nil {
		return backuperr.New(backuperr.ConfigSaveFailed, "encode config", s.Path, err)
	}

	if err := atomicWriteFile(s.Path, buf.Bytes(), 0o644); err != nil {
		return backuperr.New(backuperr.ConfigSaveFailed, "write config", s.Path, err)
	}
	return nil
}

// ResolvePath makes p absolute relative to the config file's directory.
func (s *Store) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(s.Path), p)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
