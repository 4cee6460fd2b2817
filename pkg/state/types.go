package state

import "time"

// LibRef is a library installed on behalf of a package
type LibRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"` // <root>/lib/<name>/<version>
}

// ScriptRef is an entry point installed on the execution path
type ScriptRef struct {
	Name   string `json:"name"`   // entry point, e.g. stats-tool
	Source string `json:"source"` // path declared in the manifest
	Path   string `json:"path"`   // <root>/bin/<name>
}

// Record is what kickoff remembers about an installed package
type Record struct {
	Name         string      `json:"name"`
	Version      string      `json:"version"`
	Description  string      `json:"description,omitempty"`
	URL          string      `json:"url,omitempty"`
	Author       string      `json:"author,omitempty"`
	AuthorEmail  string      `json:"author_email,omitempty"`
	Dependencies []LibRef    `json:"dependencies"`
	Scripts      []ScriptRef `json:"scripts"`
	InstalledAt  time.Time   `json:"installed_at"`
}
