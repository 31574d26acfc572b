package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	goos   string
	goarch string
}

// NewDetector creates a new platform detector for the running host.
func NewDetector() Detector {
	return &RealDetector{goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// Detect performs platform detection and returns platform information.
// It uses runtime.GOOS and runtime.GOARCH for OS and architecture,
// and gopsutil for Linux distribution details.
//
// On Linux, if gopsutil fails to detect the distribution, the distro fields
// stay empty and detection still succeeds. Cancellation is a hard failure.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	pair, err := NewPair(d.goos, d.goarch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	info := &Info{
		OS:      pair.OS,
		Arch:    pair.Arch,
		ArchRaw: d.goarch,
	}

	if d.goos != "linux" {
		return info, nil
	}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	platform = normalizePlatform(platform)
	if platform != "" {
		info.Platform = platform
		info.Family = mapFamily(family)
		info.Version = normalizePlatform(version)
	}

	return info, nil
}

// StaticDetector reports a fixed platform pair. It backs the --os/--arch
// overrides and keeps resolution testable on any host.
type StaticDetector struct {
	OS   string
	Arch string
}

// NewStaticDetector creates a detector that always reports os/arch.
func NewStaticDetector(os, arch string) Detector {
	return &StaticDetector{OS: os, Arch: arch}
}

// Detect normalizes the configured pair. Unrecognized values fail the same
// way real detection does.
func (s *StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", err)
	}

	pair, err := NewPair(s.OS, s.Arch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	return &Info{OS: pair.OS, Arch: pair.Arch, ArchRaw: s.Arch}, nil
}
