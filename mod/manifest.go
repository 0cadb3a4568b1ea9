package mod

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/coreos/go-semver/semver"

	"github.com/wippyai/mod-host/modfs"
)

// ManifestName is the descriptor file at a mod's root.
const ManifestName = "mod.json"

// manifest is the on-disk descriptor shape.
type manifest struct {
	ID           string            `json:"id"`
	Version      string            `json:"version,omitempty"`
	Dependencies []manifestDepends `json:"dependencies,omitempty"`
}

type manifestDepends struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// ReadManifest reads and validates mod.json from a mod's filesystem.
func ReadManifest(fsys modfs.FS) (*Descriptor, error) {
	rc, err := fsys.OpenFile(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ManifestName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestName, err)
	}

	return ParseManifest(data)
}

// ParseManifest decodes descriptor JSON.
func ParseManifest(data []byte) (*Descriptor, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest has no mod id")
	}

	desc := &Descriptor{ID: m.ID}

	if m.Version != "" {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("mod %s: bad version %q: %w", m.ID, m.Version, err)
		}
		desc.Version = v
	}

	for _, d := range m.Dependencies {
		if d.ID == "" {
			return nil, fmt.Errorf("mod %s: dependency with no id", m.ID)
		}
		dep := Dependency{ID: d.ID}
		if d.Version != "" {
			v, err := semver.NewVersion(d.Version)
			if err != nil {
				return nil, fmt.Errorf("mod %s: dependency %s: bad version %q: %w", m.ID, d.ID, d.Version, err)
			}
			dep.Constraint = v
		}
		desc.Dependencies = append(desc.Dependencies, dep)
	}

	return desc, nil
}
