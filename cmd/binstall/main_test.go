package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
	"github.com/ZebulonRouseFrantzich/binstall/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// env is an isolated home for one CLI test.
type env struct {
	home       string
	installDir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	te := testutil.SetupTestEnv(t)
	return &env{home: te.Home, installDir: te.BinDir}
}

func (e *env) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// writeRelease writes a twig script artifact and a catalog pointing at it
// for linux-amd64. It returns the catalog path.
func (e *env) writeRelease(t *testing.T, digest string) string {
	t.Helper()

	artifact := filepath.Join(e.home, "twig-1.0.0-linux-amd64")
	data := []byte("#!/bin/sh\necho \"twig version 1.0.0\"\n")
	require.NoError(t, os.WriteFile(artifact, data, 0o644))

	if digest == "" {
		d, err := integrity.Compute(integrity.SHA256, data)
		require.NoError(t, err)
		digest = d.String()
	}

	catalogPath := filepath.Join(e.home, "catalog.yaml")
	catalogYAML := fmt.Sprintf(`schema: v1
packages:
  - name: twig
    binary: twig
    releases:
      - version: 1.0.0
        artifacts:
          - os: linux
            arch: amd64
            url: file://%s
            digest: %s
`, filepath.ToSlash(artifact), digest)
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogYAML), 0o644))

	return catalogPath
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("smoke test fixture is a shell script")
	}
}

func TestVersionCommand(t *testing.T) {
	e := newEnv(t)

	stdout, _, code := e.run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "binstall "+Version)
}

func TestInstall_Done(t *testing.T) {
	skipWithoutShell(t)
	e := newEnv(t)
	catalogPath := e.writeRelease(t, "")

	stdout, stderr, code := e.run(t, "install", "twig", "1.0.0",
		"--catalog", catalogPath, "--dir", e.installDir, "--os", "linux", "--arch", "amd64")
	require.Equal(t, 0, code, stderr)

	for _, stage := range []string{"Start", "PlatformDetected", "Resolved", "Fetched", "Verified", "Installed", "Tested", "Done"} {
		assert.Contains(t, stdout, stage)
	}
	assert.Contains(t, stdout, "installed twig 1.0.0 to "+filepath.Join(e.installDir, "twig"))

	info, err := os.Stat(filepath.Join(e.installDir, "twig"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	stdout, _, code = e.run(t, "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "twig")
	assert.Contains(t, stdout, "linux-amd64")
}

func TestInstall_SkipSmoke(t *testing.T) {
	e := newEnv(t)
	catalogPath := e.writeRelease(t, "")

	t.Setenv("SHELL", "/bin/zsh")

	stdout, stderr, code := e.run(t, "install", "twig", "1.0.0", "--skip-smoke",
		"--catalog", catalogPath, "--dir", e.installDir, "--os", "linux", "--arch", "amd64")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "skipped: smoke test disabled")
	assert.Contains(t, stdout, e.installDir+" is not on your PATH")
	assert.Contains(t, stdout, filepath.Join(e.home, ".zshrc"))
}

func TestInstall_NoPathHintWhenOnPath(t *testing.T) {
	e := newEnv(t)
	catalogPath := e.writeRelease(t, "")
	t.Setenv("PATH", e.installDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	stdout, stderr, code := e.run(t, "install", "twig", "1.0.0", "--skip-smoke",
		"--catalog", catalogPath, "--dir", e.installDir, "--os", "linux", "--arch", "amd64")
	require.Equal(t, 0, code, stderr)
	assert.NotContains(t, stdout, "not on your PATH")
}

func TestInstall_Failures(t *testing.T) {
	tests := []struct {
		name    string
		digest  string
		os      string
		arch    string
		wantErr string
	}{
		{
			name:    "digest mismatch",
			digest:  "sha256:" + "ab" + string(bytes.Repeat([]byte("0"), 62)),
			os:      "linux",
			arch:    "amd64",
			wantErr: "failed at Verified",
		},
		{
			name:    "placeholder digest",
			digest:  "sha256:PLACEHOLDER_SHA256_LINUX_AMD64",
			os:      "linux",
			arch:    "amd64",
			wantErr: "failed at Verified",
		},
		{
			name:    "no catalog entry",
			os:      "windows",
			arch:    "amd64",
			wantErr: "failed at Resolved",
		},
		{
			name:    "unsupported platform",
			os:      "plan9",
			arch:    "amd64",
			wantErr: "failed at PlatformDetected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			catalogPath := e.writeRelease(t, tt.digest)

			_, stderr, code := e.run(t, "install", "twig", "1.0.0",
				"--catalog", catalogPath, "--dir", e.installDir, "--os", tt.os, "--arch", tt.arch)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantErr)

			_, err := os.Stat(filepath.Join(e.installDir, "twig"))
			assert.True(t, os.IsNotExist(err), "nothing may be installed")
		})
	}
}

func TestInstall_PlatformFlagsTogether(t *testing.T) {
	e := newEnv(t)

	_, stderr, code := e.run(t, "install", "twig", "1.0.0", "--os", "linux")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--os and --arch must be given together")
}

func TestResolve(t *testing.T) {
	e := newEnv(t)

	stdout, stderr, code := e.run(t, "resolve", "twig", "1.0.0", "--os", "darwin", "--arch", "arm64")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "macos-arm64")
	assert.Contains(t, stdout, "twig-1.0.0-darwin-arm64")
	assert.Contains(t, stdout, "cannot be installed")

	_, stderr, code = e.run(t, "resolve", "twig", "1.0.0", "--os", "windows", "--arch", "amd64")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "artifact not found")
}

func TestCatalogCheck(t *testing.T) {
	e := newEnv(t)

	stdout, stderr, code := e.run(t, "catalog", "check")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "PLACEHOLDER_SHA256_LINUX_AMD64")
	assert.Contains(t, stderr, "catalog has 4 problem(s)")

	stdout, stderr, code = e.run(t, "catalog", "check", "--catalog", e.writeRelease(t, ""))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "catalog OK: 1 package(s), 1 artifact(s)")
}

func TestCatalogCheck_SchemaViolation(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.home, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: v2\npackages: []\n"), 0o644))

	stdout, _, code := e.run(t, "catalog", "check", "--catalog", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "schema")
}

func TestCatalogDigest(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.home, "artifact")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	stdout, _, code := e.run(t, "catalog", "digest", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9\n", stdout)

	_, stderr, code := e.run(t, "catalog", "digest", path, "--algorithm", "md5")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown digest algorithm")
}

func TestList_Empty(t *testing.T) {
	e := newEnv(t)

	stdout, _, code := e.run(t, "list")
	require.Equal(t, 0, code)
	assert.Equal(t, "No packages installed.\n", stdout)
}

func TestList_ReportsRemovedBinary(t *testing.T) {
	e := newEnv(t)
	catalogPath := e.writeRelease(t, "")

	_, stderr, code := e.run(t, "install", "twig", "1.0.0", "--skip-smoke",
		"--catalog", catalogPath, "--dir", e.installDir, "--os", "linux", "--arch", "amd64")
	require.Equal(t, 0, code, stderr)

	stdout, _, code := e.run(t, "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "STATUS")
	assert.NotContains(t, stdout, "missing")

	require.NoError(t, os.Remove(filepath.Join(e.installDir, "twig")))

	stdout, _, code = e.run(t, "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "twig")
	assert.Contains(t, stdout, "missing")
}

func TestConfigInitAndShow(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.home, "config", "binstall", "settings.lua")

	stdout, stderr, code := e.run(t, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, path)
	assert.FileExists(t, path)

	_, stderr, code = e.run(t, "config", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	_, stderr, code = e.run(t, "config", "init", "--force")
	assert.Equal(t, 0, code, stderr)

	stdout, stderr, code = e.run(t, "config", "show")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "-- loaded from "+path)
	assert.Contains(t, stdout, "binstall = {")
}

func TestConfigInit_ExplicitNewPath(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.home, "custom", "settings.lua")

	_, stderr, code := e.run(t, "--config", path, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, path)

	_, _, code = e.run(t, "--config", filepath.Join(e.home, "missing.lua"), "list")
	assert.Equal(t, 1, code)
}

func TestSettingsErrors(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.home, "settings.lua")
	require.NoError(t, os.WriteFile(path, []byte(`binstall = { install_dir = os.getenv("HOME") }`), 0o644))

	_, stderr, code := e.run(t, "--config", path, "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Lua error")

	_, stderr, code = e.run(t, "--log-level", "loud", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `invalid log level "loud"`)
}
