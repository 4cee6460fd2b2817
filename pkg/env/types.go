// pkg/env/types.go
package env

// Shell is a shell dialect Script can emit
type Shell string

const (
	ShellSh   Shell = "sh"
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// PathVar is the variable listing installed library directories
const PathVar = "KICKOFF_PATH"

// Environment is an install root as seen from a shell
type Environment struct {
	Root string // install root holding bin/ and lib/
}
