// pkg/manifest/types.go
package manifest

// DefaultFile is the manifest file name looked up inside a project directory
const DefaultFile = "kickoff.toml"

// Format is a manifest serialization format
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Manifest describes a distributable unit: its metadata, the exact-pinned
// libraries it needs and the scripts it exposes on the execution path.
type Manifest struct {
	Name         string
	Version      string
	Description  string
	URL          string
	Author       string
	AuthorEmail  string
	Dependencies []Dependency // declaration order
	Scripts      []string     // paths relative to Dir

	// Dir is the directory the manifest was loaded from
	Dir string
}

// Metadata is the descriptive attribute set of a manifest. It has no
// behavioral effect on installation.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Author      string `json:"author,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
}

// Dependency is a library pinned to one exact version
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String renders the dependency as a name==version requirement
func (d Dependency) String() string {
	return d.Name + "==" + d.Version
}

// file is the on-disk shape shared by all formats
type file struct {
	Name         string   `toml:"name" yaml:"name" json:"name"`
	Version      string   `toml:"version" yaml:"version" json:"version"`
	Description  string   `toml:"description" yaml:"description" json:"description"`
	URL          string   `toml:"url" yaml:"url" json:"url"`
	Author       string   `toml:"author" yaml:"author" json:"author"`
	AuthorEmail  string   `toml:"author_email" yaml:"author_email" json:"author_email"`
	Dependencies []string `toml:"dependencies" yaml:"dependencies" json:"dependencies"`
	Scripts      []string `toml:"scripts" yaml:"scripts" json:"scripts"`
}
