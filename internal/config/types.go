package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/binstall/internal/fetch"
	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
	"github.com/ZebulonRouseFrantzich/binstall/internal/smoke"
)

const (
	defaultInstallDir = "~/.local/bin"
	defaultLogLevel   = "warn"
	maxRetries        = 10
)

// Settings is the effective binstall configuration.
type Settings struct {
	InstallDir string
	StateDir   string
	// Catalog is a catalog file path; empty selects the built-in catalog.
	Catalog  string
	LogLevel string
	Fetch    FetchSettings
	Smoke    SmokeSettings

	// Source is the settings file that was read, empty when none was.
	Source string
}

// FetchSettings tunes artifact downloads.
type FetchSettings struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
	MaxBytes  int64
}

// SmokeSettings tunes the post-install smoke test.
type SmokeSettings struct {
	Timeout time.Duration
}

// Defaults returns the built-in settings. Paths may still contain "~".
func Defaults() *Settings {
	return &Settings{
		InstallDir: defaultInstallDir,
		StateDir:   defaultStateDir(),
		LogLevel:   defaultLogLevel,
		Fetch: FetchSettings{
			Timeout:   fetch.DefaultTimeout,
			Retries:   fetch.DefaultRetries,
			UserAgent: fetch.DefaultUserAgent,
			MaxBytes:  fetch.DefaultMaxBytes,
		},
		Smoke: SmokeSettings{
			Timeout: smoke.DefaultTimeout,
		},
	}
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "binstall")
	}
	return "~/.local/state/binstall"
}

// Validate checks every field.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.InstallDir) == "" {
		return &ValidationError{Field: luaFieldInstall, Message: "cannot be empty"}
	}
	if strings.TrimSpace(s.StateDir) == "" {
		return &ValidationError{Field: luaFieldState, Message: "cannot be empty"}
	}
	if _, ok := logger.ParseLogLevel(s.LogLevel); !ok {
		return &ValidationError{Field: luaFieldLogLevel, Message: fmt.Sprintf("unknown level %q", s.LogLevel)}
	}
	if s.Fetch.Timeout <= 0 {
		return &ValidationError{Field: "fetch.timeout", Message: "must be positive"}
	}
	if s.Fetch.Retries < 0 || s.Fetch.Retries > maxRetries {
		return &ValidationError{Field: "fetch.retries", Message: fmt.Sprintf("must be between 0 and %d", maxRetries)}
	}
	if s.Fetch.MaxBytes <= 0 {
		return &ValidationError{Field: "fetch.max_bytes", Message: "must be positive"}
	}
	if s.Smoke.Timeout <= 0 {
		return &ValidationError{Field: "smoke.timeout", Message: "must be positive"}
	}
	return nil
}

// ResolvePaths expands "~" and makes every path absolute.
func (s *Settings) ResolvePaths() error {
	for _, p := range []*string{&s.InstallDir, &s.StateDir, &s.Catalog} {
		if *p == "" {
			continue
		}
		resolved, err := resolvePath(*p)
		if err != nil {
			return err
		}
		*p = resolved
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "settings validation failed for " + e.Field + ": " + e.Message
	}
	return "settings validation failed: " + e.Message
}
