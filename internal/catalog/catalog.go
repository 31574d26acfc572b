package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
	"golang.org/x/mod/semver"
)

type key struct {
	pkg     string
	version string
	pair    platform.Pair
}

// Catalog is an immutable index of release artifacts. It is safe for
// concurrent use.
type Catalog struct {
	packages map[string]Package
	entries  map[key]Entry
	order    []key
}

// New builds a catalog from package metadata and entries. Every entry must
// belong to a listed package, carry a valid semantic version and a recognized
// platform pair, and be the only entry for its (package, version, platform).
// Platform aliases such as "darwin" or "aarch64" are normalized first.
//
// Digest values are not checked here; see Validate.
func New(pkgs []Package, entries []Entry) (*Catalog, error) {
	c := &Catalog{
		packages: make(map[string]Package, len(pkgs)),
		entries:  make(map[key]Entry, len(entries)),
	}

	var problems []Problem

	for _, p := range pkgs {
		if p.Name == "" {
			problems = append(problems, Problem{Message: "package has no name"})
			continue
		}
		if _, dup := c.packages[p.Name]; dup {
			problems = append(problems, Problem{Package: p.Name, Message: "duplicate package"})
			continue
		}
		if p.Binary == "" {
			p.Binary = p.Name
		}
		if p.VersionFlag == "" {
			p.VersionFlag = DefaultVersionFlag
		}
		c.packages[p.Name] = p
	}

	for _, e := range entries {
		e.Version = normalizeVersion(e.Version)
		where := Problem{Package: e.Package, Version: e.Version, Platform: e.Platform}

		if _, ok := c.packages[e.Package]; !ok {
			where.Message = "entry for undeclared package"
			problems = append(problems, where)
			continue
		}
		if !semver.IsValid("v" + e.Version) {
			where.Message = fmt.Sprintf("version %q is not a valid semantic version", e.Version)
			problems = append(problems, where)
			continue
		}
		pair, err := platform.NewPair(e.Platform.OS, e.Platform.Arch)
		if err != nil {
			where.Message = err.Error()
			problems = append(problems, where)
			continue
		}
		// keys are canonical so "darwin" and "macos" collide
		e.Platform = pair
		where.Platform = pair
		if e.URL == "" {
			where.Message = "entry has no url"
			problems = append(problems, where)
			continue
		}

		k := key{pkg: e.Package, version: e.Version, pair: e.Platform}
		if _, dup := c.entries[k]; dup {
			where.Message = "more than one artifact for this platform"
			problems = append(problems, where)
			continue
		}
		c.entries[k] = e
		c.order = append(c.order, k)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return c, nil
}

// Lookup returns the entry for exactly (pkg, version, pair).
func (c *Catalog) Lookup(pkg, version string, pair platform.Pair) (Entry, error) {
	version = normalizeVersion(version)

	if e, ok := c.entries[key{pkg: pkg, version: version, pair: pair}]; ok {
		return e, nil
	}

	nf := &NotFoundError{Package: pkg, Version: version, Platform: pair}
	switch {
	case !c.hasPackage(pkg):
		nf.Reason = "unknown package"
	case len(c.Platforms(pkg, version)) == 0:
		nf.Reason = "unknown version"
	default:
		nf.Reason = "no build for this platform"
	}
	return Entry{}, nf
}

// Package returns the metadata for a package.
func (c *Catalog) Package(name string) (Package, bool) {
	p, ok := c.packages[name]
	return p, ok
}

// Packages returns all packages sorted by name.
func (c *Catalog) Packages() []Package {
	out := make([]Package, 0, len(c.packages))
	for _, p := range c.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Entries returns every entry in declaration order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entries[k])
	}
	return out
}

// Platforms returns the pairs a release is published for, in declaration order.
func (c *Catalog) Platforms(pkg, version string) []platform.Pair {
	version = normalizeVersion(version)

	var out []platform.Pair
	for _, k := range c.order {
		if k.pkg == pkg && k.version == version {
			out = append(out, k.pair)
		}
	}
	return out
}

// Validate reports entries that cannot be installed as-is: digests that are
// empty, placeholders or malformed, and signatures without a signing key.
// An empty result means every entry is ready to verify.
func (c *Catalog) Validate() []Problem {
	var problems []Problem

	for _, e := range c.Entries() {
		where := Problem{Package: e.Package, Version: e.Version, Platform: e.Platform}

		if err := e.Digest.Check(); err != nil {
			where.Message = err.Error()
			problems = append(problems, where)
		}

		if e.SignatureURL != "" {
			if p, _ := c.Package(e.Package); strings.TrimSpace(p.SigningKey) == "" {
				where.Message = "signature_url set but package has no signing_key"
				problems = append(problems, where)
			}
		}
	}

	return problems
}

// Placeholders returns the entries whose digest is an unresolved placeholder.
func (c *Catalog) Placeholders() []Entry {
	var out []Entry
	for _, e := range c.Entries() {
		if integrity.IsPlaceholder(e.Digest.Hex) {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) hasPackage(name string) bool {
	_, ok := c.packages[name]
	return ok
}

// normalizeVersion drops a leading "v" so "v1.0.0" and "1.0.0" name the same
// release.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}
