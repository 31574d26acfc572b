package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OnPath reports whether dir is one of the entries of pathList, a value in
// the format of $PATH.
func OnPath(dir, pathList string) bool {
	want := filepath.Clean(dir)
	for _, entry := range filepath.SplitList(pathList) {
		if entry != "" && filepath.Clean(entry) == want {
			return true
		}
	}
	return false
}

// PathHint returns the line that adds dir to PATH in shell's rc file. dir is
// quoted for the target shell so spaces and quotes survive.
func PathHint(shell ShellType, dir string) (string, error) {
	switch shell {
	case ShellBash, ShellZsh:
		return `export PATH="` + doubleQuoteEscaper.Replace(dir) + `:$PATH"`, nil
	case ShellFish:
		return "fish_add_path '" + fishQuoteEscaper.Replace(dir) + "'", nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// Characters that stay special inside POSIX double quotes.
var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)

// Inside fish single quotes only backslash and the quote itself are escapes.
var fishQuoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// RCFilePath returns the path to the shell's RC file.
func RCFilePath(shell ShellType) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	switch shell {
	case ShellBash:
		return filepath.Join(homeDir, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(homeDir, ".zshrc"), nil
	default:
		return filepath.Join(homeDir, ".config", "fish", "config.fish"), nil
	}
}
