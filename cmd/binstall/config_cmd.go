package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/binstall/internal/config"
)

func (a *app) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the binstall settings file",
	}
	cmd.AddCommand(a.newConfigInitCommand(), a.newConfigShowCommand())
	return cmd
}

func (a *app) newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the settings file",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			annotationWritesSettings: "true",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.settingsPath()
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("settings file %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check settings file: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create settings directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.NewGenerator().Generate(a.settings)), 0o644); err != nil {
				return fmt.Errorf("write settings file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")
	return cmd
}

func (a *app) newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as Lua",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.settings.Source != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "-- loaded from %s\n", a.settings.Source)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.NewGenerator().Generate(a.settings))
			return nil
		},
	}
}

// settingsPath is the file config init writes: --config, then
// BINSTALL_CONFIG, then the default location.
func (a *app) settingsPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	if path := os.Getenv(config.EnvConfig); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}
