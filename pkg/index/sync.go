package index

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Sync shallow-clones the index repository and swaps it into dest. The
// previous copy is only replaced after a successful clone.
func Sync(ctx context.Context, repoURL, branch, dest string, progress io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(dest), ".index-clone-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if progress != nil {
		fmt.Fprintf(progress, "Updating package index from %s...\n", repoURL)
	}

	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:           repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Progress:      progress,
	})
	if err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "packages")); err != nil {
		return fmt.Errorf("%s does not look like a package index: no packages/ directory", repoURL)
	}

	old := dest + ".old"
	os.RemoveAll(old)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, old); err != nil {
			return fmt.Errorf("moving previous index aside: %w", err)
		}
	}
	if err := os.Rename(tempDir, dest); err != nil {
		os.Rename(old, dest)
		return fmt.Errorf("installing new index: %w", err)
	}
	os.RemoveAll(old)

	if progress != nil {
		fmt.Fprintln(progress, "Package index updated successfully.")
	}
	return nil
}
