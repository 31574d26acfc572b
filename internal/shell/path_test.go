package shell

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH fixtures use ':' separators")
	}

	tests := []struct {
		name     string
		dir      string
		pathList string
		want     bool
	}{
		{name: "present", dir: "/home/me/.local/bin", pathList: "/usr/bin:/home/me/.local/bin:/bin", want: true},
		{name: "trailing slash", dir: "/home/me/.local/bin/", pathList: "/home/me/.local/bin", want: true},
		{name: "entry not clean", dir: "/home/me/bin", pathList: "/home/me/./bin", want: true},
		{name: "absent", dir: "/opt/bin", pathList: "/usr/bin:/bin", want: false},
		{name: "prefix only", dir: "/usr", pathList: "/usr/bin", want: false},
		{name: "empty PATH", dir: "/usr/bin", pathList: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OnPath(tt.dir, tt.pathList))
		})
	}
}

func TestPathHint(t *testing.T) {
	tests := []struct {
		name  string
		shell ShellType
		dir   string
		want  string
	}{
		{name: "zsh", shell: ShellZsh, dir: "/home/me/.local/bin", want: `export PATH="/home/me/.local/bin:$PATH"`},
		{name: "bash spaces", shell: ShellBash, dir: "/home/me/my bin", want: `export PATH="/home/me/my bin:$PATH"`},
		{name: "bash specials", shell: ShellBash, dir: "/opt/a\"b$c`d\\e", want: `export PATH="/opt/a\"b\$c\` + "`" + `d\\e:$PATH"`},
		{name: "fish", shell: ShellFish, dir: "/home/me/.local/bin", want: `fish_add_path '/home/me/.local/bin'`},
		{name: "fish spaces", shell: ShellFish, dir: "/home/me/my bin", want: `fish_add_path '/home/me/my bin'`},
		{name: "fish quote and backslash", shell: ShellFish, dir: `/opt/it's\bin`, want: `fish_add_path '/opt/it\'s\\bin'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint, err := PathHint(tt.shell, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hint)
		})
	}

	_, err := PathHint(ShellUnknown, "/x")
	assert.Error(t, err)
}

func TestRCFilePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		shell ShellType
		want  string
	}{
		{ShellBash, filepath.Join(home, ".bashrc")},
		{ShellZsh, filepath.Join(home, ".zshrc")},
		{ShellFish, filepath.Join(home, ".config", "fish", "config.fish")},
	}

	for _, tt := range tests {
		t.Run(tt.shell.String(), func(t *testing.T) {
			got, err := RCFilePath(tt.shell)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, home))
		})
	}

	_, err := RCFilePath(ShellUnknown)
	assert.Error(t, err)
}
