package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// fileFormat is the on-disk YAML layout of a catalog.
type fileFormat struct {
	Actions []core.ActionDefinition `yaml:"actions"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(f.Actions) == 0 {
		return nil, core.ErrValidation(core.CodeInvalidAction, "catalog defines no actions")
	}
	return New(f.Actions...)
}

// Marshal renders the catalog as YAML in the format LoadFile reads.
func Marshal(c *Catalog) ([]byte, error) {
	data, err := yaml.Marshal(fileFormat{Actions: c.List()})
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	return data, nil
}
