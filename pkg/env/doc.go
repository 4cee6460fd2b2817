// pkg/env/doc.go

/*
Package env makes installed packages reachable from a shell.

Entry points live in <root>/bin, which goes on PATH. Library directories
(<root>/lib/<name>/<version>) are exported as KICKOFF_PATH so an entry point
can find the exact versions its package was installed with.

Basic Usage:

	e := env.New("/home/me/.kickoff")

	script, err := e.Script(env.ShellBash, records)
	if err != nil {
		return err
	}
	fmt.Print(script) // eval "$(kickoff env)"
*/
package env
