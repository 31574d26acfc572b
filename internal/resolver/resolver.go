// Package resolver picks the catalog entry for the platform the installer is
// running on.
package resolver

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/binstall/internal/catalog"
	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

// Resolver combines platform detection with a catalog lookup.
type Resolver struct {
	detector platform.Detector
	catalog  *catalog.Catalog
}

// New creates a resolver.
func New(detector platform.Detector, c *catalog.Catalog) *Resolver {
	return &Resolver{detector: detector, catalog: c}
}

// Resolution is a resolved entry together with the platform it was resolved for.
type Resolution struct {
	Platform *platform.Info
	Package  catalog.Package
	Entry    catalog.Entry
}

// Detect reports the platform resolution will use.
func (r *Resolver) Detect(ctx context.Context) (*platform.Info, error) {
	info, err := r.detector.Detect(ctx)
	if err != nil {
		return nil, err
	}
	logger.DebugKV(ctx, "platform detected", "platform", info.Pair().String(), "distro", info.Platform)
	return info, nil
}

// Lookup finds the entry for pkg and version on an already detected platform.
func (r *Resolver) Lookup(ctx context.Context, info *platform.Info, pkg, version string) (*Resolution, error) {
	entry, err := r.catalog.Lookup(pkg, version, info.Pair())
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", pkg, version, err)
	}

	meta, _ := r.catalog.Package(pkg)
	logger.DebugKV(ctx, "artifact resolved", "package", pkg, "version", entry.Version,
		"platform", entry.Platform.String(), "url", entry.URL)

	return &Resolution{Platform: info, Package: meta, Entry: entry}, nil
}

// Resolve detects the platform and returns the single matching entry.
// Unsupported platforms and catalog misses are returned unchanged in kind.
func (r *Resolver) Resolve(ctx context.Context, pkg, version string) (*Resolution, error) {
	info, err := r.Detect(ctx)
	if err != nil {
		return nil, err
	}
	return r.Lookup(ctx, info, pkg, version)
}
