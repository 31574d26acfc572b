package platform

import (
	"strings"
)

// osAliases maps GOOS values and common spellings to recognized OS names.
var osAliases = map[string]string{
	"darwin":  OSMacOS,
	"macos":   OSMacOS,
	"osx":     OSMacOS,
	"linux":   OSLinux,
	"windows": OSWindows,
	"win":     OSWindows,
	"freebsd": OSFreeBSD,
}

// archAliases maps GOARCH values and uname spellings to recognized architectures.
var archAliases = map[string]string{
	"amd64":   ArchAMD64,
	"x86_64":  ArchAMD64,
	"x64":     ArchAMD64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
}

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// normalizeOS converts GOOS values to recognized OS names.
func normalizeOS(goos string) (string, error) {
	if os, ok := osAliases[normalizePlatform(goos)]; ok {
		return os, nil
	}
	return "", &UnsupportedError{Kind: "os", Value: goos}
}

// normalizeArch converts GOARCH values to recognized architecture names.
func normalizeArch(arch string) (string, error) {
	if normalized, ok := archAliases[normalizePlatform(arch)]; ok {
		return normalized, nil
	}
	return "", &UnsupportedError{Kind: "arch", Value: arch}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	if canonical, ok := familyMap[normalizePlatform(family)]; ok {
		return canonical
	}
	return FamilyUnknown
}
