// errors.go
package kickoff

import "github.com/st3fan/kickoff/pkg/core"

var (
	// ErrInvalidManifest indicates the manifest could not be parsed or failed validation
	ErrInvalidManifest = core.ErrInvalidManifest

	// ErrNotPinned indicates a dependency is not declared with an exact version
	ErrNotPinned = core.ErrNotPinned

	// ErrDependencyUnavailable indicates a pinned name/version is not in the index
	ErrDependencyUnavailable = core.ErrDependencyUnavailable

	// ErrScriptNotFound indicates a declared script does not exist on disk
	ErrScriptNotFound = core.ErrScriptNotFound

	// ErrScriptConflict indicates an entry point is already owned by another package
	ErrScriptConflict = core.ErrScriptConflict

	// ErrHashMismatch indicates a hash verification failure
	ErrHashMismatch = core.ErrHashMismatch

	// ErrAlreadyInstalled indicates the package is already installed
	ErrAlreadyInstalled = core.ErrAlreadyInstalled

	// ErrNotInstalled indicates the package is not installed
	ErrNotInstalled = core.ErrNotInstalled

	// ErrPlatformNotSupported indicates no artifact matches the platform
	ErrPlatformNotSupported = core.ErrPlatformNotSupported
)

// Error wraps an error with additional context
type Error = core.Error
