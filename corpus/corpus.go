// Package corpus loads training cases from a directory of JSON files.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/snow-ghost/skilltune/core"
)

// ErrEmpty is returned when a directory holds no training cases.
var ErrEmpty = errors.New("training corpus is empty")

type fileCase struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	Request        string `json:"request"`
	TerraformFiles struct {
		MainTF      string `json:"main_tf"`
		VariablesTF string `json:"variables_tf"`
		OutputsTF   string `json:"outputs_tf"`
		ProvidersTF string `json:"providers_tf"`
	} `json:"terraform_files"`
	Tags []string `json:"tags"`
}

// Load reads every *.json file in dir, sorted by file name.
func Load(dir string) ([]core.TrainingCase, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus: %w", err)
	}
	sort.Strings(paths)

	cases := make([]core.TrainingCase, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		tc, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[tc.ID]; dup {
			return nil, fmt.Errorf("duplicate case id %q in %s and %s", tc.ID, prev, p)
		}
		seen[tc.ID] = p
		cases = append(cases, tc)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, dir)
	}
	return cases, nil
}

// LoadFile reads and checks one training case.
func LoadFile(path string) (core.TrainingCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.TrainingCase{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var fc fileCase
	if err := json.Unmarshal(data, &fc); err != nil {
		return core.TrainingCase{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tc := core.TrainingCase{
		ID:      fc.ID,
		Source:  fc.Source,
		Request: fc.Request,
		Expected: core.NewArtifactSet(map[core.ArtifactKey]string{
			core.KeyMain:      fc.TerraformFiles.MainTF,
			core.KeyVariables: fc.TerraformFiles.VariablesTF,
			core.KeyOutputs:   fc.TerraformFiles.OutputsTF,
			core.KeyProviders: fc.TerraformFiles.ProvidersTF,
		}),
		Tags: fc.Tags,
	}
	if ok, problems := core.ValidateTrainingCase(tc); !ok {
		return core.TrainingCase{}, fmt.Errorf("invalid case %s: %s", path, strings.Join(problems, "; "))
	}
	return tc, nil
}
