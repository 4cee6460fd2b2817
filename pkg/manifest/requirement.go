package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/st3fan/kickoff/pkg/core"
)

var (
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+!_-]*$`)
)

// ParseRequirement parses a "name==version" requirement. Only the exact pin
// operator is accepted; ranges and wildcards are rejected with
// core.ErrNotPinned.
func ParseRequirement(s string) (Dependency, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Dependency{}, fmt.Errorf("%w: empty requirement", core.ErrNotPinned)
	}

	idx := strings.Index(raw, "==")
	if idx < 0 {
		return Dependency{}, fmt.Errorf("%w: %q has no ==version", core.ErrNotPinned, raw)
	}

	name := strings.TrimSpace(raw[:idx])
	version := strings.TrimSpace(raw[idx+2:])

	// "===" is arbitrary equality, anything after the version is a range
	if strings.HasPrefix(version, "=") || strings.ContainsAny(version, "*<>!~=^,; ") {
		return Dependency{}, fmt.Errorf("%w: %q", core.ErrNotPinned, raw)
	}
	if name == "" || version == "" {
		return Dependency{}, fmt.Errorf("%w: %q", core.ErrNotPinned, raw)
	}
	if !namePattern.MatchString(name) {
		return Dependency{}, fmt.Errorf("invalid package name %q", name)
	}
	if !versionPattern.MatchString(version) {
		return Dependency{}, fmt.Errorf("invalid version %q for %s", version, name)
	}

	return Dependency{Name: name, Version: version}, nil
}

// CanonicalName folds case and treats '_' and '.' like '-'
func CanonicalName(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "-", ".", "-").Replace(name)
}
