// Package archive pulls a package's canonical binary out of a verified
// release artifact. Artifacts are either the raw executable or an archive
// (tar.gz, tar.xz, zip) that contains it.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Format identifies how an artifact packages its binary.
type Format string

const (
	FormatBinary Format = "binary"
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatZip    Format = "zip"
)

// MaxBinarySize bounds how much a single extracted file may expand to.
const MaxBinarySize = 512 << 20

var (
	ErrUnknownFormat  = errors.New("unknown artifact format")
	ErrBinaryNotFound = errors.New("binary not found in archive")
	ErrBinaryTooLarge = errors.New("binary exceeds size limit")
)

// ParseFormat validates a format name. The empty string is accepted and
// returned as-is so callers can fall back to DetectFormat.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatBinary, FormatTarGz, FormatTarXz, FormatZip:
		return f, nil
	case "tgz":
		return FormatTarGz, nil
	case "txz":
		return FormatTarXz, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// DetectFormat infers the format from an artifact URL or file name.
// Anything without a known archive suffix is treated as a raw binary.
func DetectFormat(name string) Format {
	name = strings.ToLower(name)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}

	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(name, ".zip"):
		return FormatZip
	default:
		return FormatBinary
	}
}

// Extract returns the bytes of the binary inside data.
//
// For archives, the member whose cleaned path equals binaryPath is chosen
// when binaryPath is set; otherwise the first regular file whose base name is
// binaryName (or binaryName + ".exe").
func Extract(data []byte, format Format, binaryName, binaryPath string) ([]byte, error) {
	m := matcher{name: binaryName, path: cleanMember(binaryPath)}

	switch format {
	case FormatBinary, "":
		return data, nil
	case FormatTarGz:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		return extractTar(gz, m)
	case FormatTarXz:
		xzr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		return extractTar(xzr, m)
	case FormatZip:
		return extractZip(data, m)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

type matcher struct {
	name string
	path string
}

func (m matcher) match(member string) bool {
	member = cleanMember(member)
	if m.path != "" {
		return member == m.path
	}
	base := path.Base(member)
	return base == m.name || base == m.name+".exe"
}

func cleanMember(p string) string {
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
}

// extractTar scans a tar stream for the binary
func extractTar(r io.Reader, m matcher) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, m.describe())
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg || !m.match(header.Name) {
			continue
		}

		return readLimited(tr)
	}
}

// extractZip scans a zip archive for the binary
func extractZip(data []byte, m matcher) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("create zip reader: %w", err)
	}

	for _, file := range zr.File {
		if file.FileInfo().IsDir() || !file.Mode().IsRegular() || !m.match(file.Name) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}
		defer rc.Close()

		return readLimited(rc)
	}

	return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, m.describe())
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBinarySize+1))
	if err != nil {
		return nil, fmt.Errorf("read binary: %w", err)
	}
	if len(data) > MaxBinarySize {
		return nil, ErrBinaryTooLarge
	}
	return data, nil
}

func (m matcher) describe() string {
	if m.path != "" {
		return m.path
	}
	return m.name
}
