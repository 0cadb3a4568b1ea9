// Package mod defines the mod descriptor consumed by the loading core.
package mod

import (
	"github.com/coreos/go-semver/semver"
)

// Dependency is one declared dependency: the target mod identifier and the
// minimum compatible version.
type Dependency struct {
	// ID is the dependency mod's unique identifier.
	ID string

	// Constraint is the minimum version the dependency must provide.
	// Nil means any version. Matching is semver-style: same major, and the
	// registered version must not be lower than the constraint.
	Constraint *semver.Version
}

// Satisfies reports whether a registered version meets the constraint.
func (d Dependency) Satisfies(v *semver.Version) bool {
	if d.Constraint == nil {
		return true
	}
	if v == nil {
		return false
	}
	if v.Major != d.Constraint.Major {
		return false
	}
	return !v.LessThan(*d.Constraint)
}

// Descriptor identifies one mod. It is immutable once registered; the
// registration collaborator owns its lifetime.
type Descriptor struct {
	// ID is the unique mod identifier, used as registry key and log label.
	ID string

	// Version is the mod's own version, checked against dependents'
	// constraints. Nil if the mod does not declare one.
	Version *semver.Version

	// Dependencies lists declared dependencies in declaration order.
	Dependencies []Dependency
}
