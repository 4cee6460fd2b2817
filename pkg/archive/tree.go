// pkg/archive/tree.go
package archive

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// tree is the destination of one extraction. It remembers every symlink the
// archive created so that no later entry is written through one of them.
type tree struct {
	dest  string
	links map[string]bool // slash separated, relative to dest
}

func newTree(dest string) *tree {
	return &tree{dest: dest, links: make(map[string]bool)}
}

// path validates an entry name and returns where it lands on disk
func (t *tree) path(name string) (string, error) {
	target, err := SafeJoin(t.dest, name)
	if err != nil {
		return "", err
	}

	rel := t.rel(target)
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "/")
		if t.links[prefix] {
			return "", fmt.Errorf("archive entry %q passes through symlink %s", name, prefix)
		}
	}

	return target, nil
}

func (t *tree) rel(target string) string {
	return filepath.ToSlash(mustRel(t.dest, target))
}

func (t *tree) dir(name string) error {
	target, err := t.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", target, err)
	}
	return nil
}

// file writes r to name, replacing any symlink already extracted there
func (t *tree) file(name string, r io.Reader, mode os.FileMode) (string, error) {
	target, err := t.path(name)
	if err != nil {
		return "", err
	}
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return "", fmt.Errorf("replacing symlink %s: %w", target, err)
		}
		delete(t.links, t.rel(target))
	}
	return target, writeFile(target, r, mode)
}

// symlink creates name pointing at linkname. The link target is walked from
// the link's directory and must stay inside dest without passing through
// another extracted symlink.
func (t *tree) symlink(name, linkname string) error {
	target, err := t.path(name)
	if err != nil {
		return err
	}
	if linkname == "" || filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("symlink %s points outside the archive: %q", target, linkname)
	}

	rel := t.rel(target)
	var walked []string
	if dir := path.Dir(rel); dir != "." {
		walked = strings.Split(dir, "/")
	}

	parts := strings.Split(filepath.ToSlash(linkname), "/")
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(walked) == 0 {
				return fmt.Errorf("symlink %s escapes the destination: %s", target, linkname)
			}
			walked = walked[:len(walked)-1]
		default:
			walked = append(walked, part)
			if i < len(parts)-1 && t.links[strings.Join(walked, "/")] {
				return fmt.Errorf("symlink %s passes through symlink %s", target, strings.Join(walked, "/"))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	os.Remove(target)
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("creating symlink: %w", err)
	}
	t.links[rel] = true
	return nil
}

// hardlink makes name another path to the already extracted existing
func (t *tree) hardlink(name, existing string) error {
	target, err := t.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	os.Remove(target)
	if err := os.Link(existing, target); err != nil {
		return fmt.Errorf("linking %s: %w", target, err)
	}
	return nil
}
