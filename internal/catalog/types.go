// Package catalog holds the static table of known release artifacts: for a
// package, a version and a platform pair, where to download the artifact and
// the digest it must hash to.
//
// A Catalog is built once, from YAML or from Go values, and is read-only
// afterwards. Lookups are exact on all three keys; there is no fallback to a
// different version or platform.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/binstall/internal/archive"
	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

// DefaultVersionFlag is passed to installed binaries by the smoke test when a
// package does not name its own flag.
const DefaultVersionFlag = "--version"

var (
	// ErrArtifactNotFound is matched by every lookup miss.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidCatalog is matched by every catalog that fails to load.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Package describes a logical package independent of its releases.
type Package struct {
	Name        string
	Description string
	Homepage    string
	Binary      string // canonical installed file name
	VersionFlag string
	SigningKey  string // ASCII-armored OpenPGP public key, optional
}

// Entry is one downloadable artifact for a (package, version, platform).
type Entry struct {
	Package      string
	Version      string
	Platform     platform.Pair
	URL          string
	Digest       integrity.Digest
	Format       archive.Format
	BinaryPath   string
	SignatureURL string
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s (%s)", e.Package, e.Version, e.Platform)
}

// NotFoundError reports the exact key a lookup missed on.
type NotFoundError struct {
	Package  string
	Version  string
	Platform platform.Pair
	Reason   string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("artifact not found: no %s %s for %s", e.Package, e.Version, e.Platform)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is reports whether target is ErrArtifactNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrArtifactNotFound
}

// Problem is a single defect found in a catalog.
type Problem struct {
	Package  string
	Version  string
	Platform platform.Pair
	Message  string
}

func (p Problem) String() string {
	var parts []string
	if p.Package != "" {
		parts = append(parts, p.Package)
	}
	if p.Version != "" {
		parts = append(parts, p.Version)
	}
	if p.Platform != (platform.Pair{}) {
		parts = append(parts, p.Platform.String())
	}
	if len(parts) == 0 {
		return p.Message
	}
	return strings.Join(parts, " ") + ": " + p.Message
}

// ValidationError collects every problem that kept a catalog from loading.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid catalog: " + e.Problems[0].String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "invalid catalog: %d problems", len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.String())
	}
	return b.String()
}

// Is reports whether target is ErrInvalidCatalog.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidCatalog
}
