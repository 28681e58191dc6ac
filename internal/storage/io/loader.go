package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/ferrycli/ferry/internal/model"
)

// ManifestYAMLRepository loads batch manifests from YAML files.
type ManifestYAMLRepository struct {
	fs fs.FS
}

// NewManifestYAMLRepository creates a new YAML manifest repository.
func NewManifestYAMLRepository(filesystem fs.FS) *ManifestYAMLRepository {
	return &ManifestYAMLRepository{fs: filesystem}
}

// GetManifest loads a batch manifest from a YAML file and returns a
// validated domain model.
func (r *ManifestYAMLRepository) GetManifest(ctx context.Context, path string) (model.Manifest, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("reading manifest file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Manifest{}, ctx.Err()
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return model.Manifest{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := m.validate(); err != nil {
		return model.Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}

	return m.toModel(), nil
}

// Manifest represents the YAML structure for a batch manifest.
type Manifest struct {
	Profile   string       `yaml:"profile,omitempty"`
	RemoteDir string       `yaml:"remote_dir,omitempty"`
	Files     []string     `yaml:"files"`
	Policy    PolicyConfig `yaml:"policy"`
}

// PolicyConfig represents the YAML structure for the run policy.
type PolicyConfig struct {
	StartDelaySeconds         int `yaml:"start_delay_seconds"`
	InterFileDelaySeconds     int `yaml:"inter_file_delay_seconds"`
	CheckpointAfter           int `yaml:"checkpoint_after"`
	ReconnectThresholdSeconds int `yaml:"reconnect_threshold_seconds"`
}

func (m Manifest) validate() error {
	if len(m.Files) == 0 {
		return fmt.Errorf("at least one file is required")
	}
	for i, f := range m.Files {
		if f == "" {
			return fmt.Errorf("file %d is empty", i+1)
		}
	}

	p := m.toModel().Policy
	if err := p.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	return nil
}

func (m Manifest) toModel() model.Manifest {
	return model.Manifest{
		Profile:   m.Profile,
		RemoteDir: m.RemoteDir,
		Files:     m.Files,
		Policy: model.Policy{
			StartDelaySeconds:         m.Policy.StartDelaySeconds,
			InterFileDelaySeconds:     m.Policy.InterFileDelaySeconds,
			CheckpointAfter:           m.Policy.CheckpointAfter,
			ReconnectThresholdSeconds: m.Policy.ReconnectThresholdSeconds,
		},
	}
}
