// pkg/env/env.go
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/st3fan/kickoff/pkg/state"
)

// New returns the environment of an install root
func New(root string) *Environment {
	return &Environment{Root: root}
}

// BinDir returns the directory holding entry points
func (e *Environment) BinDir() string {
	return filepath.Join(e.Root, "bin")
}

// LibDir returns the directory holding library versions
func (e *Environment) LibDir() string {
	return filepath.Join(e.Root, "lib")
}

// LibraryPaths returns every library directory referenced by records, in
// record order and without duplicates.
func (e *Environment) LibraryPaths(records []*state.Record) []string {
	var paths []string
	seen := make(map[string]bool)

	for _, rec := range records {
		for _, lib := range rec.Dependencies {
			path := lib.Path
			if path == "" {
				path = filepath.Join(e.LibDir(), lib.Name, lib.Version)
			}
			if seen[path] {
				continue
			}
			seen[path] = true
			paths = append(paths, path)
		}
	}

	return paths
}

// ParseShell maps a shell name or path (e.g. /bin/zsh) to a Shell
func ParseShell(name string) (Shell, error) {
	switch base := filepath.Base(name); base {
	case "sh", "dash", "ash":
		return ShellSh, nil
	case "bash":
		return ShellBash, nil
	case "zsh":
		return ShellZsh, nil
	case "fish":
		return ShellFish, nil
	default:
		return "", fmt.Errorf("unsupported shell %q (supported: sh, bash, zsh, fish)", name)
	}
}

// DetectShell returns the login shell from $SHELL, defaulting to sh
func DetectShell() Shell {
	if sh, err := ParseShell(os.Getenv("SHELL")); err == nil {
		return sh
	}
	return ShellSh
}

// Script returns the commands that put the install root on the execution
// path, for eval by the given shell.
func (e *Environment) Script(shell Shell, records []*state.Record) (string, error) {
	libs := strings.Join(e.LibraryPaths(records), string(os.PathListSeparator))

	var b strings.Builder
	switch shell {
	case ShellFish:
		fmt.Fprintf(&b, "set -gx PATH %s $PATH\n", quote(e.BinDir()))
		fmt.Fprintf(&b, "set -gx %s %s\n", PathVar, quote(libs))
	case ShellSh, ShellBash, ShellZsh, "":
		fmt.Fprintf(&b, "export PATH=%s:\"$PATH\"\n", quote(e.BinDir()))
		fmt.Fprintf(&b, "export %s=%s\n", PathVar, quote(libs))
	default:
		return "", fmt.Errorf("unsupported shell %q", shell)
	}

	return b.String(), nil
}

// quote single-quotes s for POSIX shells and fish
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
