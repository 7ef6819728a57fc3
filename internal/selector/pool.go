package selector

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"equityScalpBot/internal/ports"
)

// Candidate is one symbol in the selection pool.
type Candidate struct {
	Symbol string `yaml:"symbol"`
	Sector string `yaml:"sector"`
}

// poolFile is the on-disk shape of the candidate pool.
type poolFile struct {
	Candidates []Candidate `yaml:"candidates"`
}

// LoadPool reads the candidate pool from a YAML file. Candidates are
// returned sorted by symbol so every run walks the pool in the same order.
func LoadPool(path string) ([]Candidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidate pool %s: %w", path, err)
	}
	var pf poolFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parsing candidate pool %s: %w", path, err)
	}
	if len(pf.Candidates) == 0 {
		return nil, fmt.Errorf("candidate pool %s is empty: %w", path, ports.ErrConfigurationError)
	}

	seen := make(map[string]bool, len(pf.Candidates))
	out := make([]Candidate, 0, len(pf.Candidates))
	for _, c := range pf.Candidates {
		if c.Symbol == "" || seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
