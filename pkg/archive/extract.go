// pkg/archive/extract.go
package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"zombiezen.com/go/nix/nar"
)

// Kind is an artifact container format
type Kind string

const (
	KindTarGz  Kind = "tar.gz"
	KindTarXz  Kind = "tar.xz"
	KindTarZst Kind = "tar.zst"
	KindTar    Kind = "tar"
	KindZip    Kind = "zip"
	KindNar    Kind = "nar"
	KindNarXz  Kind = "nar.xz"
	KindDeb    Kind = "deb"
	KindRpm    Kind = "rpm"
	KindCpio   Kind = "cpio" // optionally .gz, .xz or .zst compressed
	KindFile   Kind = "file" // copied as-is
)

// Detect picks the container format from a file name
func Detect(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return KindTarXz
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return KindTarZst
	case strings.HasSuffix(lower, ".tar"):
		return KindTar
	case strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".whl"):
		return KindZip
	case strings.HasSuffix(lower, ".nar.xz"):
		return KindNarXz
	case strings.HasSuffix(lower, ".nar"):
		return KindNar
	case strings.HasSuffix(lower, ".deb"):
		return KindDeb
	case strings.HasSuffix(lower, ".rpm"):
		return KindRpm
	case strings.Contains(lower, ".cpio"):
		return KindCpio
	default:
		return KindFile
	}
}

// Extractor unpacks artifacts into a destination directory
type Extractor struct {
	logger *log.Logger
}

// New creates an Extractor; a nil logger discards output
func New(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Extractor{logger: logger}
}

// Extract unpacks src into dest. name decides the format; it is usually the
// artifact's original file name since cached copies carry a prefix.
func (e *Extractor) Extract(src, name, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	kind := Detect(name)
	e.logger.Printf("Extracting %s (%s) into %s", name, kind, dest)
	t := newTree(dest)

	switch kind {
	case KindTarGz, KindTarXz, KindTarZst, KindTar:
		r, closer, err := decompress(f, string(kind))
		if err != nil {
			return err
		}
		defer closer()
		return e.extractTar(r, t)
	case KindZip:
		return e.extractZip(f, t)
	case KindNarXz:
		r, closer, err := decompress(f, string(kind))
		if err != nil {
			return err
		}
		defer closer()
		return e.extractNar(r, t)
	case KindNar:
		return e.extractNar(bufio.NewReader(f), t)
	case KindDeb:
		return e.extractDeb(f, t)
	case KindRpm:
		return e.extractRpm(f, t)
	case KindCpio:
		r, closer, err := decompress(f, strings.ToLower(name))
		if err != nil {
			return err
		}
		defer closer()
		return e.extractCpio(r, t)
	default:
		_, err := t.file(filepath.Base(name), f, 0644)
		return err
	}
}

func (e *Extractor) extractTar(r io.Reader, t *tree) error {
	tarReader := tar.NewReader(r)
	fileCount := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = t.dir(cleanPath)
		case tar.TypeSymlink:
			err = t.symlink(cleanPath, header.Linkname)
		case tar.TypeReg:
			_, err = t.file(cleanPath, tarReader, modeFor(os.FileMode(header.Mode)))
			fileCount++
		default:
			e.logger.Printf("  Skipping %s (type %c)", header.Name, header.Typeflag)
		}
		if err != nil {
			return err
		}
	}

	e.logger.Printf("✓ Extraction complete (%d files)", fileCount)
	return nil
}

func (e *Extractor) extractZip(f *os.File, t *tree) error {
	stat, err := f.Stat()
	if err != nil {
		return err
	}

	archive, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}

	for _, item := range archive.File {
		if item.FileInfo().IsDir() {
			if err := t.dir(item.Name); err != nil {
				return err
			}
			continue
		}

		rc, err := item.Open()
		if err != nil {
			return fmt.Errorf("opening archive entry %s: %w", item.Name, err)
		}
		_, err = t.file(item.Name, rc, modeFor(item.Mode()))
		rc.Close()
		if err != nil {
			return err
		}
	}

	e.logger.Printf("✓ Extraction complete (%d entries)", len(archive.File))
	return nil
}

func (e *Extractor) extractNar(r io.Reader, t *tree) error {
	narReader := nar.NewReader(r)
	fileCount := 0

	for {
		hdr, err := narReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading NAR entry: %w", err)
		}

		// the root entry has an empty path
		name := strings.TrimPrefix(hdr.Path, "/")
		if name == "" {
			if hdr.Mode.IsDir() {
				continue
			}
			name = "content"
		}

		switch hdr.Mode.Type() {
		case os.ModeDir:
			err = t.dir(name)
		case os.ModeSymlink:
			err = t.symlink(name, hdr.LinkTarget)
		case 0:
			_, err = t.file(name, narReader, modeFor(hdr.Mode))
			fileCount++
		}
		if err != nil {
			return err
		}
	}

	e.logger.Printf("✓ Extraction complete (%d files)", fileCount)
	return nil
}

// SafeJoin joins name onto dest and rejects names escaping dest
func SafeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("archive entry %q is absolute", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the destination", name)
	}
	return target, nil
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing file %s: %w", path, err)
	}

	return out.Close()
}

func modeFor(mode os.FileMode) os.FileMode {
	if mode&0111 != 0 {
		return 0755
	}
	return 0644
}
