// Package manifest handles remora.toml loader configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a remora.toml loader configuration.
type Manifest struct {
	Host   Host   `toml:"host"`
	Policy Policy `toml:"policy"`
	Log    Log    `toml:"log"`

	// Dir is the directory containing the remora.toml file (set at load time).
	Dir string `toml:"-"`
}

// Host locates the host release this loader boots.
type Host struct {
	Bundle string `toml:"bundle"`
	Pins   string `toml:"pins"`
}

// Policy configures the compatibility gate and branding.
type Policy struct {
	RequireClientMod bool   `toml:"require-client-mod"`
	BrandTitle       string `toml:"brand-title"`
}

// Log configures loader logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Load parses a remora.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "remora.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Host.Bundle == "" {
		m.Host.Bundle = "host.bundle"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a remora.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "remora.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// BundlePath returns the absolute path of the host bundle.
func (m *Manifest) BundlePath() string {
	if filepath.IsAbs(m.Host.Bundle) {
		return m.Host.Bundle
	}
	return filepath.Join(m.Dir, m.Host.Bundle)
}

// PinsPath returns the absolute path of the pin catalog override, or the
// empty string when the embedded catalog applies.
func (m *Manifest) PinsPath() string {
	if m.Host.Pins == "" || filepath.IsAbs(m.Host.Pins) {
		return m.Host.Pins
	}
	return filepath.Join(m.Dir, m.Host.Pins)
}
