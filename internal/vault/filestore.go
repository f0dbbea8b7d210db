package vault

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/virex/go/internal/fsutil"
)

// FileStore keeps the commitment in a small YAML settings file, for systems
// without a usable keyring
type FileStore struct {
	path string
}

type settingsFile struct {
	MasterHash string `yaml:"master_hash,omitempty"`
}

// NewFileStore creates a FileStore backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name identifies the backend in status output
func (s *FileStore) Name() string {
	return "file"
}

// Path returns the settings file path
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored commitment
func (s *FileStore) Load() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings settingsFile
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return "", false, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if settings.MasterHash == "" {
		return "", false, nil
	}
	return settings.MasterHash, true, nil
}

// Store overwrites the stored commitment
func (s *FileStore) Store(commitment string) error {
	data, err := yaml.Marshal(settingsFile{MasterHash: commitment})
	if err != nil {
		return fmt.Errorf("failed to encode settings file: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// Clear removes the settings file
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove settings file: %w", err)
	}
	return nil
}
