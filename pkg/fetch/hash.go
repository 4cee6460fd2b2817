// pkg/fetch/hash.go
package fetch

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"zombiezen.com/go/nix"

	"github.com/st3fan/kickoff/pkg/core"
)

// ParseHash accepts a bare hex sha256 digest, a nix "<type>:<digest>" hash
// in base16, nix base32 or base64, or an SRI "<type>-<base64>" string.
func ParseHash(s string) (nix.Hash, error) {
	s = strings.TrimSpace(s)
	if len(s) == 64 {
		if _, err := hex.DecodeString(s); err == nil {
			s = "sha256:" + strings.ToLower(s)
		}
	}

	h, err := nix.ParseHash(s)
	if err != nil {
		return nix.Hash{}, fmt.Errorf("parsing hash %q: %w", s, err)
	}
	return h, nil
}

// HashFile computes the hash of path using the same algorithm as expected
func HashFile(path string, expected nix.Hash) (nix.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nix.Hash{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	hasher := nix.NewHasher(expected.Type())
	if _, err := io.Copy(hasher, f); err != nil {
		return nix.Hash{}, fmt.Errorf("computing hash: %w", err)
	}

	return hasher.SumHash(), nil
}

// VerifyFile checks path against the expected hash string
func VerifyFile(path, expected string) error {
	want, err := ParseHash(expected)
	if err != nil {
		return err
	}

	got, err := HashFile(path, want)
	if err != nil {
		return err
	}

	if got.SRI() != want.SRI() {
		return fmt.Errorf("%w: expected %s, got %s", core.ErrHashMismatch, want.SRI(), got.SRI())
	}

	return nil
}
