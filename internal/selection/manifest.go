package selection

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const ManifestVersion = 1

// Manifest is a reusable sync plan loaded from a YAML file. Items may
// be literal paths or glob patterns.
type Manifest struct {
	Version int             `yaml:"version"`
	Target  string          `yaml:"target"`
	Items   []string        `yaml:"items"`
	Options ManifestOptions `yaml:"options,omitempty"`
}

type ManifestOptions struct {
	Threads      int  `yaml:"threads,omitempty"`
	ByteProgress bool `yaml:"byte_progress,omitempty"`
}

func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Version == 0 {
		m.Version = ManifestVersion
	}
	if m.Version > ManifestVersion {
		return nil, fmt.Errorf("manifest %s: unsupported version %d", path, m.Version)
	}
	if m.Target == "" {
		return nil, fmt.Errorf("manifest %s: target is required", path)
	}
	if len(m.Items) == 0 {
		return nil, fmt.Errorf("manifest %s: items are required", path)
	}
	return &m, nil
}

func SaveManifest(path string, m *Manifest) error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if m.Version == 0 {
		m.Version = ManifestVersion
	}

	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Resolve expands the manifest's items into a selection.
func (m *Manifest) Resolve(opts ResolveOptions) (*Selection, error) {
	return Resolve(m.Items, opts)
}
