package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/binstall/internal/catalog"
	"github.com/ZebulonRouseFrantzich/binstall/internal/config"
	"github.com/ZebulonRouseFrantzich/binstall/internal/fetch"
	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
	"github.com/ZebulonRouseFrantzich/binstall/internal/pipeline"
	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

// annotationWritesSettings marks commands that may run before the settings
// file exists.
const annotationWritesSettings = "binstall/writes-settings"

// app holds the global flags and the settings loaded before every command.
type app struct {
	configPath string
	logLevel   string
	verbose    bool

	settings *config.Settings
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "binstall",
		Short: "Install prebuilt binaries for this platform",
		Long: `binstall resolves a package version to the release artifact built for the
host operating system and architecture, downloads it, verifies its digest,
installs the binary and runs it once to confirm it works.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the Lua settings file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "show full error details")

	root.AddCommand(
		a.newInstallCommand(),
		a.newResolveCommand(),
		a.newCatalogCommand(),
		a.newListCommand(),
		a.newConfigCommand(),
		newVersionCommand(),
	)

	return root
}

// setup loads the settings and configures logging for the command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger.SetLogger(logger.New(cmd.ErrOrStderr(), nil))

	load := config.Load
	if cmd.Annotations[annotationWritesSettings] != "" {
		load = config.LoadOrDefaults
	}
	settings, err := load(cmd.Context(), platform.NewDetector(), a.configPath)
	if err != nil {
		return errors.New(config.FormatError(err, a.verbose))
	}
	a.settings = settings

	level := settings.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("invalid log level %q", level)
	}
	logger.SetLevel(parsed)

	cmd.SetContext(logger.ToContext(cmd.Context(), logger.Logger()))
	logger.DebugKV(cmd.Context(), "settings loaded", "source", settings.Source,
		"install_dir", settings.InstallDir, "state_dir", settings.StateDir)

	return nil
}

// openCatalog loads path, falling back to the settings catalog and then to
// the built-in one.
func (a *app) openCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		path = a.settings.Catalog
	}
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path, catalog.LoadOptions{})
}

func (a *app) fetchOptions() fetch.Options {
	f := a.settings.Fetch
	return fetch.Options{
		Timeout:   f.Timeout,
		Retries:   f.Retries,
		NoRetry:   f.Retries == 0,
		UserAgent: f.UserAgent,
		MaxBytes:  f.MaxBytes,
		Progress:  true,
	}
}

// platformFlags are the --os/--arch overrides shared by install and resolve.
type platformFlags struct {
	os   string
	arch string
}

func (p *platformFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.os, "os", "", "target operating system instead of the host's")
	cmd.Flags().StringVar(&p.arch, "arch", "", "target architecture instead of the host's")
}

func (p *platformFlags) detector() (platform.Detector, error) {
	switch {
	case p.os == "" && p.arch == "":
		return platform.NewDetector(), nil
	case p.os == "" || p.arch == "":
		return nil, errors.New("--os and --arch must be given together")
	default:
		return platform.NewStaticDetector(p.os, p.arch), nil
	}
}

// printError reports a failed command. Pipeline failures already read
// "failed at <stage>: <reason>".
func printError(w io.Writer, err error) {
	var stageErr *pipeline.Error
	if errors.As(err, &stageErr) {
		fmt.Fprintln(w, errorMark(), err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
