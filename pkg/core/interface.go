// pkg/core/interface.go
package core

import "context"

// Resolver looks up exact releases in a package index
type Resolver interface {
	// Name describes the index (a directory or a URL)
	Name() string

	// Lookup returns the release of name at exactly version. Implementations
	// return an error wrapping ErrDependencyUnavailable when the pair does
	// not exist.
	Lookup(ctx context.Context, name, version string) (*Release, error)
}
