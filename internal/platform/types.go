// Package platform identifies the host operating system and CPU architecture
// as a normalized pair, the key artifacts are published under.
//
// Detection is a pure query of the running environment: runtime.GOOS and
// runtime.GOARCH give the pair, and gopsutil adds Linux distribution details
// for the settings file. The details never take part in artifact resolution.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// Recognized operating systems.
const (
	OSMacOS   = "macos"
	OSLinux   = "linux"
	OSWindows = "windows"
	OSFreeBSD = "freebsd"
)

// Recognized architectures.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// ErrUnsupportedPlatform is matched by every detection failure caused by an
// operating system or architecture outside the recognized set.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// UnsupportedError names the value that could not be recognized.
type UnsupportedError struct {
	Kind  string // "os" or "arch"
	Value string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported platform: unrecognized %s %q", e.Kind, e.Value)
}

// Is reports whether target is ErrUnsupportedPlatform.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// Pair is the (operating system, architecture) tuple identifying a build target.
type Pair struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// String renders the pair as "os-arch", e.g. "linux-amd64".
func (p Pair) String() string {
	return p.OS + "-" + p.Arch
}

// Validate checks that both halves of the pair are recognized values in
// their canonical spelling. Aliases such as "darwin" must go through NewPair.
func (p Pair) Validate() error {
	canonical, err := NewPair(p.OS, p.Arch)
	if err != nil {
		return err
	}
	if canonical != p {
		return fmt.Errorf("platform %s is not canonical, use %s", p, canonical)
	}
	return nil
}

// NewPair normalizes raw OS and architecture names (GOOS/GOARCH spellings or
// common aliases such as "darwin" and "x86_64") into a Pair.
func NewPair(os, arch string) (Pair, error) {
	normalizedOS, err := normalizeOS(os)
	if err != nil {
		return Pair{}, err
	}
	normalizedArch, err := normalizeArch(arch)
	if err != nil {
		return Pair{}, err
	}
	return Pair{OS: normalizedOS, Arch: normalizedArch}, nil
}

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "macos", "windows", "freebsd" (normalized)
	Arch     string // "amd64", "arm64" (normalized)
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu")
	Family   string // canonical family (e.g., "debian")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Pair returns the normalized platform pair used for artifact resolution.
func (i *Info) Pair() Pair {
	return Pair{OS: i.OS, Arch: i.Arch}
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == OSMacOS
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == OSWindows
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == ArchAMD64
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == ArchARM64
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == OSMacOS && i.Arch == ArchARM64
}

// IsFamily returns true if the Linux distribution belongs to family.
func (i *Info) IsFamily(family string) bool {
	return i.OS == OSLinux && i.Family == family
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
