package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/binstall/internal/archive"
	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

const realDigest = "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

var supportedPairs = []platform.Pair{
	{OS: platform.OSMacOS, Arch: platform.ArchARM64},
	{OS: platform.OSMacOS, Arch: platform.ArchAMD64},
	{OS: platform.OSLinux, Arch: platform.ArchARM64},
	{OS: platform.OSLinux, Arch: platform.ArchAMD64},
}

func TestDefault_ResolvesEverySupportedPair(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, pair := range supportedPairs {
		t.Run(pair.String(), func(t *testing.T) {
			entry, err := c.Lookup("twig", "1.0.0", pair)
			require.NoError(t, err)
			assert.Equal(t, pair, entry.Platform)
			assert.Equal(t, "twig", entry.Package)
			assert.Equal(t, "1.0.0", entry.Version)
			assert.Equal(t, archive.FormatTarGz, entry.Format)
			assert.Equal(t, integrity.SHA256, entry.Digest.Algorithm)
		})
	}

	assert.Len(t, c.Entries(), len(supportedPairs))
	assert.ElementsMatch(t, supportedPairs, c.Platforms("twig", "1.0.0"))
}

func TestDefault_URLsKeepReleaseNames(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	entry, err := c.Lookup("twig", "1.0.0", platform.Pair{OS: platform.OSMacOS, Arch: platform.ArchARM64})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(entry.URL, "twig-1.0.0-darwin-arm64.tar.gz"), entry.URL)

	pkg, ok := c.Package("twig")
	require.True(t, ok)
	assert.Equal(t, "twig", pkg.Binary)
	assert.Equal(t, "--version", pkg.VersionFlag)
}

func TestDefault_PlaceholdersAreReported(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	problems := c.Validate()
	assert.Len(t, problems, len(supportedPairs))
	for _, p := range problems {
		assert.Contains(t, p.Message, "placeholder")
	}
	assert.Len(t, c.Placeholders(), len(supportedPairs))

	_, err = Load(DefaultData(), LoadOptions{Strict: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestLookup_NotFound(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name    string
		pkg     string
		version string
		pair    platform.Pair
		reason  string
	}{
		{"windows_has_no_build", "twig", "1.0.0", platform.Pair{OS: platform.OSWindows, Arch: platform.ArchAMD64}, "no build for this platform"},
		{"freebsd_has_no_build", "twig", "1.0.0", platform.Pair{OS: platform.OSFreeBSD, Arch: platform.ArchARM64}, "no build for this platform"},
		{"unknown_version", "twig", "2.0.0", platform.Pair{OS: platform.OSLinux, Arch: platform.ArchAMD64}, "unknown version"},
		{"close_version_is_not_a_match", "twig", "1.0", platform.Pair{OS: platform.OSLinux, Arch: platform.ArchAMD64}, "unknown version"},
		{"unknown_package", "hugo", "1.0.0", platform.Pair{OS: platform.OSLinux, Arch: platform.ArchAMD64}, "unknown package"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := c.Lookup(tt.pkg, tt.version, tt.pair)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArtifactNotFound)
			assert.Equal(t, Entry{}, entry)

			var nf *NotFoundError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, tt.pair, nf.Platform)
			assert.Equal(t, tt.reason, nf.Reason)
		})
	}
}

func TestLookup_LeadingV(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	entry, err := c.Lookup("twig", "v1.0.0", platform.Pair{OS: platform.OSLinux, Arch: platform.ArchAMD64})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", entry.Version)
}

func TestLookup_Concurrent(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(pair platform.Pair) {
			defer wg.Done()
			entry, err := c.Lookup("twig", "1.0.0", pair)
			assert.NoError(t, err)
			assert.Equal(t, pair, entry.Platform)
		}(supportedPairs[i%len(supportedPairs)])
	}
	wg.Wait()
}

func TestNew(t *testing.T) {
	linux := platform.Pair{OS: platform.OSLinux, Arch: platform.ArchAMD64}
	entry := Entry{Package: "twig", Version: "1.0.0", Platform: linux, URL: "https://example.com/twig", Digest: integrity.ParseDigest(realDigest)}

	t.Run("defaults", func(t *testing.T) {
		c, err := New([]Package{{Name: "twig"}}, []Entry{entry})
		require.NoError(t, err)

		pkg, ok := c.Package("twig")
		require.True(t, ok)
		assert.Equal(t, "twig", pkg.Binary)
		assert.Equal(t, DefaultVersionFlag, pkg.VersionFlag)
		assert.Empty(t, c.Validate())
	})

	tests := []struct {
		name    string
		pkgs    []Package
		entries []Entry
		message string
	}{
		{
			name:    "duplicate_platform",
			pkgs:    []Package{{Name: "twig"}},
			entries: []Entry{entry, entry},
			message: "more than one artifact",
		},
		{
			name: "duplicate_platform_alias",
			pkgs: []Package{{Name: "twig"}},
			entries: []Entry{
				{Package: "twig", Version: "1.0.0", Platform: platform.Pair{OS: "macos", Arch: "arm64"}, URL: "https://example.com/a"},
				{Package: "twig", Version: "1.0.0", Platform: platform.Pair{OS: "darwin", Arch: "aarch64"}, URL: "https://example.com/b"},
			},
			message: "more than one artifact",
		},
		{
			name:    "undeclared_package",
			pkgs:    []Package{{Name: "twig"}},
			entries: []Entry{{Package: "hugo", Version: "1.0.0", Platform: linux, URL: "https://example.com/hugo"}},
			message: "undeclared package",
		},
		{
			name:    "bad_version",
			pkgs:    []Package{{Name: "twig"}},
			entries: []Entry{{Package: "twig", Version: "latest", Platform: linux, URL: "https://example.com/twig"}},
			message: "semantic version",
		},
		{
			name:    "bad_platform",
			pkgs:    []Package{{Name: "twig"}},
			entries: []Entry{{Package: "twig", Version: "1.0.0", Platform: platform.Pair{OS: "plan9", Arch: "amd64"}, URL: "https://example.com/twig"}},
			message: "plan9",
		},
		{
			name:    "missing_url",
			pkgs:    []Package{{Name: "twig"}},
			entries: []Entry{{Package: "twig", Version: "1.0.0", Platform: linux}},
			message: "no url",
		},
		{
			name:    "duplicate_package",
			pkgs:    []Package{{Name: "twig"}, {Name: "twig"}},
			message: "duplicate package",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pkgs, tt.entries)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNew_NormalizesPlatformAliases(t *testing.T) {
	c, err := New([]Package{{Name: "twig"}}, []Entry{
		{Package: "twig", Version: "1.0.0", Platform: platform.Pair{OS: "darwin", Arch: "aarch64"}, URL: "https://example.com/twig", Digest: integrity.ParseDigest(realDigest)},
	})
	require.NoError(t, err)

	want := platform.Pair{OS: platform.OSMacOS, Arch: platform.ArchARM64}
	entry, err := c.Lookup("twig", "1.0.0", want)
	require.NoError(t, err)
	assert.Equal(t, want, entry.Platform)
	assert.Equal(t, []platform.Pair{want}, c.Platforms("twig", "1.0.0"))
}

func TestValidate_SignatureWithoutKey(t *testing.T) {
	c, err := New(
		[]Package{{Name: "twig"}},
		[]Entry{{
			Package:      "twig",
			Version:      "1.0.0",
			Platform:     platform.Pair{OS: platform.OSLinux, Arch: platform.ArchAMD64},
			URL:          "https://example.com/twig",
			Digest:       integrity.ParseDigest(realDigest),
			SignatureURL: "https://example.com/twig.asc",
		}},
	)
	require.NoError(t, err)

	problems := c.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].String(), "signing_key")
	assert.Contains(t, problems[0].String(), "twig 1.0.0 linux-amd64")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(string(DefaultData()), "sha256:PLACEHOLDER_SHA256_LINUX_AMD64", realDigest)), 0o644))

	c, err := LoadFile(path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, c.Validate(), 3)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"), LoadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
