// pkg/core/package.go
package core

import (
	"fmt"

	"github.com/st3fan/kickoff/pkg/platform"
)

// Release is a single exactly-versioned release of a package in an index
type Release struct {
	Name      string     `toml:"-" json:"name"`
	Version   string     `toml:"version" json:"version"`
	Artifacts []Artifact `toml:"artifacts" json:"artifacts"`
}

// Artifact is one downloadable file of a release
type Artifact struct {
	Platform string `toml:"platform" json:"platform"` // "any" or "os/arch"
	URL      string `toml:"url" json:"url"`           // http(s) URL or local path
	Hash     string `toml:"sha256" json:"sha256"`     // hex sha256, nix hash or SRI
}

// Artifact picks the artifact built for plat, falling back to a
// platform-independent one.
func (r *Release) Artifact(plat string) (*Artifact, error) {
	var fallback *Artifact
	for i := range r.Artifacts {
		a := &r.Artifacts[i]
		tag := a.Platform
		if tag == "" {
			tag = platform.Any
		}
		if tag == platform.Any {
			if fallback == nil {
				fallback = a
			}
			continue
		}
		if platform.Matches(plat, tag) {
			return a, nil
		}
	}

	if fallback != nil {
		return fallback, nil
	}

	return nil, &Error{
		Op:      "select artifact",
		Package: fmt.Sprintf("%s==%s", r.Name, r.Version),
		Err:     fmt.Errorf("%w: no artifact for %s", ErrPlatformNotSupported, plat),
	}
}
