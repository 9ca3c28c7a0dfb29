package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Manifest describes a filter module to host tooling: what it is called,
// which version is deployed, and the schema of its configuration payload.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	ConfigSchema json.RawMessage `json:"config_schema,omitempty"`
}

// BuildManifest assembles a manifest document. cfg may be nil for modules
// without a configuration payload; otherwise its generated schema is
// embedded.
func BuildManifest(name, version string, cfg any) ([]byte, error) {
	if name == "" {
		return nil, errors.New("manifest requires a name")
	}

	m := Manifest{Name: name, Version: version}
	if cfg != nil {
		s, err := Generate(cfg)
		if err != nil {
			return nil, fmt.Errorf("generating config schema: %w", err)
		}
		m.ConfigSchema = s
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return data, nil
}
