package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/snow-ghost/skilltune/core"
)

// Manifest describes one materialized artifact set
type Manifest struct {
	CaseID    string            `json:"case_id"`
	Iteration int               `json:"iteration"`
	Files     map[string]string `json:"files"` // file name -> sha256
	Digest    string            `json:"digest"`
	CreatedAt string            `json:"created_at"`
}

// NewManifest creates a manifest for set
func NewManifest(iteration int, caseID string, set core.ArtifactSet) *Manifest {
	m := &Manifest{
		CaseID:    caseID,
		Iteration: iteration,
		Files:     make(map[string]string, len(core.ArtifactKeys)),
		Digest:    Digest(set),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, k := range core.ArtifactKeys {
		sum := sha256.Sum256([]byte(set[k]))
		m.Files[k.FileName()] = hex.EncodeToString(sum[:])
	}
	return m
}

// Digest hashes the four files in key order. Equal sets have equal digests.
func Digest(set core.ArtifactSet) string {
	h := sha256.New()
	for _, k := range core.ArtifactKeys {
		content := set[k]
		fmt.Fprintf(h, "%s:%d\n", k, len(content))
		h.Write([]byte(content))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks if the manifest is valid
func (m *Manifest) Validate() error {
	if m.CaseID == "" {
		return fmt.Errorf("manifest case_id is required")
	}
	if m.Iteration < 1 {
		return fmt.Errorf("manifest iteration must be positive, got %d", m.Iteration)
	}
	if len(m.Files) != len(core.ArtifactKeys) {
		return fmt.Errorf("manifest lists %d files, want %d", len(m.Files), len(core.ArtifactKeys))
	}
	if m.Digest == "" {
		return fmt.Errorf("manifest digest is required")
	}
	return nil
}

// ToJSON converts the manifest to JSON
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// FromJSON creates a manifest from JSON
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ArtifactDir returns the directory of one (iteration, case) pair
func ArtifactDir(baseDir string, iteration int, caseID string) string {
	return filepath.Join(baseDir, fmt.Sprintf("iter_%d", iteration), caseID)
}
