package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DetectShell detects the user's shell using multiple methods
func DetectShell(ctx context.Context) *DetectionResult {
	// Method 1: Try $SHELL environment variable (most reliable)
	if shell := os.Getenv("SHELL"); shell != "" {
		shellType := parseShellFromPath(shell)
		if shellType.IsValid() {
			return &DetectionResult{
				Shell:      shellType,
				Method:     "$SHELL environment variable",
				ShellPath:  shell,
				Confidence: "high",
			}
		}
	}

	// Method 2: Try parent process (fallback)
	if shellType, shellPath := detectFromParentProcess(ctx); shellType.IsValid() {
		return &DetectionResult{
			Shell:      shellType,
			Method:     "parent process",
			ShellPath:  shellPath,
			Confidence: "medium",
		}
	}

	return &DetectionResult{
		Shell:      ShellUnknown,
		Method:     "detection failed",
		Confidence: "none",
	}
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/bin/zsh -> zsh
//   - -zsh (login shell) -> zsh
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}

// detectFromParentProcess inspects the process that started binstall.
func detectFromParentProcess(ctx context.Context) (ShellType, string) {
	parent, err := process.NewProcessWithContext(ctx, int32(os.Getppid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return ShellUnknown, ""
	}

	if exe, err := parent.ExeWithContext(ctx); err == nil {
		if shellType := parseShellFromPath(exe); shellType.IsValid() {
			return shellType, exe
		}
	}

	name, err := parent.NameWithContext(ctx)
	if err != nil {
		return ShellUnknown, ""
	}
	return parseShellFromPath(name), name
}

// ValidateShell validates that a shell type is supported
func ValidateShell(shell ShellType) error {
	if !shell.IsValid() {
		return &UnsupportedShellError{Shell: shell.String()}
	}
	return nil
}
