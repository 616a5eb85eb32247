// Package skills persists the skill document and parses revision output.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Load when the skill file does not exist.
var ErrNotFound = errors.New("skill file not found")

// FileStore keeps the active skill in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the skill file location
func (s *FileStore) Path() string { return s.path }

// Load reads the active skill.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return "", fmt.Errorf("failed to read skill: %w", err)
	}
	return string(data), nil
}

// Save replaces the active skill. The write goes through a temp file and a
// rename so a crash never leaves a truncated skill behind.
func (s *FileStore) Save(skill string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create skill directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".skill-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(skill); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write skill: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write skill: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace skill: %w", err)
	}
	return nil
}

// BackupPath returns <stem>_backup_<iteration><ext> next to the skill file.
func (s *FileStore) BackupPath(iteration int) string {
	ext := filepath.Ext(s.path)
	stem := strings.TrimSuffix(filepath.Base(s.path), ext)
	return filepath.Join(filepath.Dir(s.path), fmt.Sprintf("%s_backup_%d%s", stem, iteration, ext))
}

// Backup copies the active skill to BackupPath(iteration). A missing skill
// file is not an error; the path is still returned.
func (s *FileStore) Backup(iteration int) (string, error) {
	path := s.BackupPath(iteration)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("failed to read skill: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return path, nil
}
