// Package testutil provides utilities for testing binstall in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env is an isolated home directory for one test.
type Env struct {
	Home      string
	ConfigDir string // XDG_CONFIG_HOME
	StateDir  string // XDG_STATE_HOME
	BinDir    string // a ready install directory, not on PATH
}

// SetupTestEnv points HOME and the XDG directories at a fresh temp dir and
// clears every BINSTALL_* override, so tests never read the user's settings
// or write receipts into their state directory.
//
// The cleanup function is automatically handled by t.TempDir() and
// t.Setenv(), so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	home := t.TempDir()
	env := &Env{
		Home:      home,
		ConfigDir: filepath.Join(home, "config"),
		StateDir:  filepath.Join(home, "state"),
		BinDir:    filepath.Join(home, "bin"),
	}

	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigDir)
	t.Setenv("XDG_STATE_HOME", env.StateDir)

	for _, name := range []string{"BINSTALL_CONFIG", "BINSTALL_INSTALL_DIR", "BINSTALL_LOG_LEVEL"} {
		t.Setenv(name, "")
	}

	for _, dir := range []string{env.ConfigDir, env.StateDir, env.BinDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
