package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Class maps one instrument class to its artifacts. The dataset key selects
// the class's token grid inside each sample record; the checkpoint dir is
// where that class's trained model checkpoints live.
type Class struct {
	Name          string `yaml:"name"`
	DatasetKey    string `yaml:"dataset_key"`
	CheckpointDir string `yaml:"checkpoint_dir"`
}

// Registry is the explicit enumeration of instrument classes and the
// conditioning class. Class identity is resolved through this table only;
// nothing is derived from directory-name interpolation.
type Registry struct {
	Conditioning string  `yaml:"conditioning"`
	Classes      []Class `yaml:"classes"`
}

// LoadRegistry reads and validates a class registry YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read registry %s: %w", path, err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("config: parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("config: registry %s: %w", path, err)
	}
	return &reg, nil
}

// Validate checks the registry for the invariants the pipeline relies on.
func (r *Registry) Validate() error {
	if r.Conditioning == "" {
		return fmt.Errorf("conditioning class not set")
	}
	if len(r.Classes) == 0 {
		return fmt.Errorf("no classes defined")
	}
	seen := make(map[string]bool)
	for i, c := range r.Classes {
		if c.Name == "" {
			return fmt.Errorf("class %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate class %q", c.Name)
		}
		seen[c.Name] = true
		if c.DatasetKey == "" {
			return fmt.Errorf("class %q has no dataset_key", c.Name)
		}
		if c.Name != r.Conditioning && c.CheckpointDir == "" {
			return fmt.Errorf("class %q has no checkpoint_dir", c.Name)
		}
	}
	if !seen[r.Conditioning] {
		return fmt.Errorf("conditioning class %q not in class list", r.Conditioning)
	}
	return nil
}

// ConditioningKey resolves the conditioning class to the dataset key its
// grids are stored under. Class name and dataset key may differ; record
// lookups must always go through the key.
func (r *Registry) ConditioningKey() string {
	if c, err := r.Lookup(r.Conditioning); err == nil {
		return c.DatasetKey
	}
	return r.Conditioning
}

// Lookup returns the class entry by name.
func (r *Registry) Lookup(name string) (*Class, error) {
	for i := range r.Classes {
		if r.Classes[i].Name == name {
			return &r.Classes[i], nil
		}
	}
	return nil, fmt.Errorf("config: unknown class %q", name)
}

// Targets returns every class except the conditioning class, in registry
// order. These are the stems the model generates.
func (r *Registry) Targets() []Class {
	out := make([]Class, 0, len(r.Classes))
	for _, c := range r.Classes {
		if c.Name != r.Conditioning {
			out = append(out, c)
		}
	}
	return out
}
