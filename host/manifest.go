package host

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Manifest describes one filter module deployment: where the binary lives,
// how to run it, and which filter chains to configure at load.
type Manifest struct {
	Module ModuleConfig  `yaml:"module" validate:"required"`
	Chains []ChainConfig `yaml:"chains" validate:"dive"`
}

// ModuleConfig is the runtime section of a manifest.
type ModuleConfig struct {
	Path           string `yaml:"path" validate:"required"`
	PoolSize       int    `yaml:"pool_size" validate:"gte=0"`
	MaxMemoryPages int    `yaml:"max_memory_pages" validate:"gte=0,lte=65536"`
	Interpreter    bool   `yaml:"interpreter"`
}

// ChainConfig names one filter chain and carries its configuration payload,
// handed to the module verbatim.
type ChainConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Config string `yaml:"config"`
}

var manifestValidate = validator.New()

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := manifestValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("validating manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// options translates the manifest's runtime section into construction
// options; zero values fall back to the defaults in New.
func (m *Manifest) options() []Option {
	var opts []Option
	if m.Module.PoolSize > 0 {
		opts = append(opts, WithPoolSize(m.Module.PoolSize))
	}
	if m.Module.MaxMemoryPages > 0 {
		opts = append(opts, WithMaxMemoryPages(m.Module.MaxMemoryPages))
	}
	if m.Module.Interpreter {
		opts = append(opts, WithInterpreter())
	}
	return opts
}

// Load builds a Runtime from a manifest, reading the module binary from
// the manifest's path. Extra options are applied after the manifest's own.
func Load(ctx context.Context, m *Manifest, opts ...Option) (*Runtime, error) {
	wasmBytes, err := os.ReadFile(m.Module.Path)
	if err != nil {
		return nil, fmt.Errorf("reading module binary: %w", err)
	}
	return New(ctx, wasmBytes, append(m.options(), opts...)...)
}
