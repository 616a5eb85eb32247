package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snow-ghost/skilltune/core"
)

const manifestFile = "manifest.json"

// FSStore writes artifact sets under <baseDir>/iter_<n>/<case-id>/.
type FSStore struct {
	baseDir string
}

func NewFSStore(baseDir string) *FSStore {
	return &FSStore{baseDir: baseDir}
}

// Save materializes the four files and a manifest, returning the directory.
func (s *FSStore) Save(iteration int, caseID string, set core.ArtifactSet) (string, error) {
	if strings.ContainsAny(caseID, `/\`) || caseID == "" || caseID == "." || caseID == ".." {
		return "", fmt.Errorf("invalid case id %q", caseID)
	}
	dir := ArtifactDir(s.baseDir, iteration, caseID)
	if err := WriteSet(dir, set); err != nil {
		return "", err
	}

	data, err := NewManifest(iteration, caseID, set).ToJSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return dir, nil
}

// LoadManifest reads the manifest written by Save.
func (s *FSStore) LoadManifest(iteration int, caseID string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(ArtifactDir(s.baseDir, iteration, caseID), manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// WriteSet writes the four files into dir, creating it if needed.
func WriteSet(dir string, set core.ArtifactSet) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	for _, k := range core.ArtifactKeys {
		if err := os.WriteFile(filepath.Join(dir, k.FileName()), []byte(set[k]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", k.FileName(), err)
		}
	}
	return nil
}

// ReadSet loads the four files from dir. Absent files read as empty content.
func ReadSet(dir string) (core.ArtifactSet, error) {
	files := make(map[core.ArtifactKey]string, len(core.ArtifactKeys))
	for _, k := range core.ArtifactKeys {
		data, err := os.ReadFile(filepath.Join(dir, k.FileName()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", k.FileName(), err)
		}
		files[k] = string(data)
	}
	return core.NewArtifactSet(files), nil
}
