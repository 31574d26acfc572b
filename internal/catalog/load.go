package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/ZebulonRouseFrantzich/binstall/internal/archive"
	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

//go:embed schema/catalog.schema.json
var schemaJSON string

//go:embed default/twig.yaml
var defaultCatalog []byte

const schemaURL = "catalog.schema.json"

var compiledSchema = jsonschema.MustCompileString(schemaURL, schemaJSON)

// LoadOptions controls catalog loading.
type LoadOptions struct {
	// Strict refuses catalogs for which Validate reports problems, such as
	// placeholder digests.
	Strict bool
}

type fileSpec struct {
	Schema   string        `yaml:"schema"`
	Packages []packageSpec `yaml:"packages"`
}

type packageSpec struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Homepage    string        `yaml:"homepage"`
	Binary      string        `yaml:"binary"`
	VersionFlag string        `yaml:"version_flag"`
	SigningKey  string        `yaml:"signing_key"`
	Releases    []releaseSpec `yaml:"releases"`
}

type releaseSpec struct {
	Version   string         `yaml:"version"`
	Artifacts []artifactSpec `yaml:"artifacts"`
}

type artifactSpec struct {
	OS           string `yaml:"os"`
	Arch         string `yaml:"arch"`
	URL          string `yaml:"url"`
	Digest       string `yaml:"digest"`
	Format       string `yaml:"format"`
	BinaryPath   string `yaml:"binary_path"`
	SignatureURL string `yaml:"signature_url"`
}

// Load parses a YAML catalog, validates it against the catalog schema and
// builds the index.
func Load(data []byte, opts LoadOptions) (*Catalog, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var spec fileSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}

	pkgs, entries, problems := spec.flatten()
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	c, err := New(pkgs, entries)
	if err != nil {
		return nil, err
	}

	if opts.Strict {
		if problems := c.Validate(); len(problems) > 0 {
			return nil, &ValidationError{Problems: problems}
		}
	}

	return c, nil
}

// LoadFile reads and loads a catalog file.
func LoadFile(path string, opts LoadOptions) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	c, err := Load(data, opts)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// Default loads the catalog compiled into the binary. It is loaded
// non-strictly: unresolved digests are kept so they fail at verification.
func Default() (*Catalog, error) {
	return Load(defaultCatalog, LoadOptions{})
}

// DefaultData returns the raw YAML of the built-in catalog.
func DefaultData() []byte {
	return bytes.Clone(defaultCatalog)
}

func validateSchema(data []byte) error {
	raw, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrInvalidCatalog, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: parse: %v", ErrInvalidCatalog, err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &ValidationError{Problems: schemaProblems(verr)}
		}
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	return nil
}

// schemaProblems flattens the leaves of a schema validation error.
func schemaProblems(verr *jsonschema.ValidationError) []Problem {
	var problems []Problem
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			problems = append(problems, Problem{Message: fmt.Sprintf("schema: %s: %s", loc, e.Message)})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return problems
}

func (f fileSpec) flatten() ([]Package, []Entry, []Problem) {
	var (
		pkgs     []Package
		entries  []Entry
		problems []Problem
	)

	for _, p := range f.Packages {
		pkgs = append(pkgs, Package{
			Name:        p.Name,
			Description: p.Description,
			Homepage:    p.Homepage,
			Binary:      p.Binary,
			VersionFlag: p.VersionFlag,
			SigningKey:  p.SigningKey,
		})

		for _, r := range p.Releases {
			for _, a := range r.Artifacts {
				pair, err := platform.NewPair(a.OS, a.Arch)
				if err != nil {
					problems = append(problems, Problem{Package: p.Name, Version: r.Version, Message: err.Error()})
					continue
				}

				format, err := archive.ParseFormat(a.Format)
				if err != nil {
					problems = append(problems, Problem{Package: p.Name, Version: r.Version, Platform: pair, Message: err.Error()})
					continue
				}
				if format == "" {
					format = archive.DetectFormat(a.URL)
				}

				entries = append(entries, Entry{
					Package:      p.Name,
					Version:      r.Version,
					Platform:     pair,
					URL:          strings.TrimSpace(a.URL),
					Digest:       integrity.ParseDigest(a.Digest),
					Format:       format,
					BinaryPath:   a.BinaryPath,
					SignatureURL: a.SignatureURL,
				})
			}
		}
	}

	return pkgs, entries, problems
}
