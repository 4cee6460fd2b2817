// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidManifest indicates the manifest could not be parsed or failed validation
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrNotPinned indicates a dependency is not declared with an exact version
	ErrNotPinned = errors.New("dependency is not pinned to an exact version")

	// ErrDependencyUnavailable indicates a pinned name/version is not in the index
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrScriptNotFound indicates a declared script does not exist on disk
	ErrScriptNotFound = errors.New("script not found")

	// ErrScriptConflict indicates an entry point is already owned by another package
	ErrScriptConflict = errors.New("script already installed by another package")

	// ErrHashMismatch indicates a hash verification failure
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrAlreadyInstalled indicates the package is already installed
	ErrAlreadyInstalled = errors.New("package already installed")

	// ErrNotInstalled indicates the package is not installed
	ErrNotInstalled = errors.New("package not installed")

	// ErrPlatformNotSupported indicates no artifact matches the platform
	ErrPlatformNotSupported = errors.New("platform not supported")
)

// Error wraps an error with additional context
type Error struct {
	Op      string // Operation that failed
	Package string // Package name (or name==version) if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
