// pkg/archive/formats.go
package archive

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
	"github.com/sassoftware/go-rpmutils"
	rpmcpio "github.com/sassoftware/go-rpmutils/cpio"
	"github.com/ulikunitz/xz"
)

// decompress picks a decompressor from the suffix of name. Anything
// without a known compression suffix is read as-is.
func decompress(r io.Reader, name string) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, "gz"):
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gzReader, func() { gzReader.Close() }, nil
	case strings.HasSuffix(name, "xz"):
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating xz reader: %w", err)
		}
		return xzReader, func() {}, nil
	case strings.HasSuffix(name, "zst"):
		zsReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		return zsReader, zsReader.Close, nil
	default:
		return r, func() {}, nil
	}
}

// extractDeb unpacks the data.tar.* member of a Debian package
func (e *Extractor) extractDeb(f *os.File, t *tree) error {
	arReader := ar.NewReader(f)

	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading ar entry: %w", err)
		}

		e.logger.Printf("  Found ar member: %s (%d bytes)", header.Name, header.Size)

		// ar names may carry a trailing slash
		member := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if strings.HasPrefix(member, "data.tar") {
			r, closer, err := decompress(arReader, member)
			if err != nil {
				return err
			}
			defer closer()
			return e.extractTar(r, t)
		}
	}

	return fmt.Errorf("no data.tar.* found in .deb package")
}

// extractRpm expands the payload of an RPM package. Paths in the payload
// are absolute; they land relative to the destination.
func (e *Extractor) extractRpm(f *os.File, t *tree) error {
	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return fmt.Errorf("reading rpm package: %w", err)
	}

	payload, err := rpm.PayloadReaderExtended()
	if err != nil {
		return fmt.Errorf("reading rpm payload: %w", err)
	}

	// hard links precede the entry carrying their content
	pending := make(map[int][]string)
	fileCount := 0

	for {
		info, err := payload.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading rpm payload: %w", err)
		}

		name := strings.TrimPrefix(strings.TrimPrefix(info.Name(), "./"), "/")
		if name == "" || name == "." {
			continue
		}

		switch info.Mode() &^ 07777 {
		case rpmcpio.S_ISDIR:
			err = t.dir(name)
		case rpmcpio.S_ISLNK:
			err = t.symlink(name, info.Linkname())
		case rpmcpio.S_ISREG:
			if payload.IsLink() {
				pending[info.Inode()] = append(pending[info.Inode()], name)
				continue
			}
			var target string
			target, err = t.file(name, payload, modeFor(os.FileMode(info.Mode()&0777)))
			fileCount++
			for _, link := range pending[info.Inode()] {
				if err != nil {
					break
				}
				err = t.hardlink(link, target)
			}
			delete(pending, info.Inode())
		default:
			e.logger.Printf("  Skipping %s (mode %o)", info.Name(), info.Mode())
		}
		if err != nil {
			return err
		}
	}

	e.logger.Printf("✓ Extraction complete (%d files)", fileCount)
	return nil
}

func (e *Extractor) extractCpio(r io.Reader, t *tree) error {
	cpioReader := cpio.NewReader(r)
	fileCount := 0

	for {
		header, err := cpioReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading cpio: %w", err)
		}

		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." || cleanPath == "TRAILER!!!" {
			continue
		}

		switch {
		case header.Mode.IsDir():
			err = t.dir(cleanPath)
		case header.Mode.IsRegular():
			_, err = t.file(cleanPath, cpioReader, modeFor(os.FileMode(header.Mode&0777)))
			fileCount++
		case (header.Mode & 0170000) == 0120000: // symlink
			err = t.symlink(cleanPath, header.Linkname)
		default:
			e.logger.Printf("  Skipping %s (mode %o)", header.Name, header.Mode)
		}
		if err != nil {
			return err
		}
	}

	e.logger.Printf("✓ Extraction complete (%d files)", fileCount)
	return nil
}
