package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

// DefaultPath returns where the settings file is looked for when neither
// --config nor BINSTALL_CONFIG names one.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "binstall", "settings.lua"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "binstall", "settings.lua"), nil
}

// Load builds the effective settings. path is the --config value; when it
// is empty BINSTALL_CONFIG and then DefaultPath are tried. An explicitly
// named file must exist; a missing default file yields the defaults.
func Load(ctx context.Context, detector platform.Detector, path string) (*Settings, error) {
	return load(ctx, detector, path, false)
}

// LoadOrDefaults is Load, except that a missing explicitly named file also
// yields the defaults. It serves commands that create the settings file.
func LoadOrDefaults(ctx context.Context, detector platform.Detector, path string) (*Settings, error) {
	return load(ctx, detector, path, true)
}

func load(ctx context.Context, detector platform.Detector, path string, allowMissing bool) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	code, err := readSettings(path)
	var settings *Settings
	switch {
	case err == nil:
		settings, err = NewParser(detector).ParseString(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("load settings %s: %w", path, err)
		}
		settings.Source = path
	case os.IsNotExist(err) && (!explicit || allowMissing):
		settings = Defaults()
	default:
		return nil, fmt.Errorf("load settings: %w", err)
	}

	applyEnv(settings)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := settings.ResolvePaths(); err != nil {
		return nil, err
	}

	return settings, nil
}

func readSettings(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		return "", fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSettingsSize+1))
	if err != nil {
		return "", fmt.Errorf("read settings: %w", err)
	}
	if len(data) > maxSettingsSize {
		return "", fmt.Errorf("settings file %s exceeds %d bytes", path, maxSettingsSize)
	}
	return string(data), nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv(EnvInstallDir); v != "" {
		s.InstallDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
}
