package testutil_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/binstall/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	t.Setenv("BINSTALL_INSTALL_DIR", "/should/be/cleared")

	env := testutil.SetupTestEnv(t)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, env.Home, home)

	assert.Equal(t, env.ConfigDir, os.Getenv("XDG_CONFIG_HOME"))
	assert.Equal(t, env.StateDir, os.Getenv("XDG_STATE_HOME"))
	assert.Empty(t, os.Getenv("BINSTALL_INSTALL_DIR"))

	for _, dir := range []string{env.ConfigDir, env.StateDir, env.BinDir} {
		assert.DirExists(t, dir)
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	first := testutil.SetupTestEnv(t)

	t.Run("nested", func(t *testing.T) {
		second := testutil.SetupTestEnv(t)
		assert.NotEqual(t, first.Home, second.Home)
	})
}
