package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/binstall/internal/fetch"
	"github.com/ZebulonRouseFrantzich/binstall/internal/install"
	"github.com/ZebulonRouseFrantzich/binstall/internal/pipeline"
	"github.com/ZebulonRouseFrantzich/binstall/internal/resolver"
	"github.com/ZebulonRouseFrantzich/binstall/internal/shell"
	"github.com/ZebulonRouseFrantzich/binstall/internal/smoke"
)

type installOptions struct {
	dir       string
	catalog   string
	skipSmoke bool
	platform  platformFlags
}

func (a *app) newInstallCommand() *cobra.Command {
	opts := &installOptions{}

	cmd := &cobra.Command{
		Use:   "install PACKAGE VERSION",
		Short: "Download, verify and install a package binary",
		Example: `  binstall install twig 1.0.0
  binstall install twig 1.0.0 --dir /usr/local/bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "install directory (default from settings)")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "catalog file to resolve against")
	cmd.Flags().BoolVar(&opts.skipSmoke, "skip-smoke", false, "do not run the installed binary")
	opts.platform.register(cmd)

	return cmd
}

func (a *app) runInstall(cmd *cobra.Command, opts *installOptions, pkg, version string) error {
	ctx := cmd.Context()

	cat, err := a.openCatalog(opts.catalog)
	if err != nil {
		return err
	}
	detector, err := opts.platform.detector()
	if err != nil {
		return err
	}

	dir := a.settings.InstallDir
	if opts.dir != "" {
		if dir, err = filepath.Abs(opts.dir); err != nil {
			return fmt.Errorf("resolve install directory: %w", err)
		}
	}
	installer, err := install.New(install.Config{Dir: dir})
	if err != nil {
		return err
	}

	out := newReporter(cmd.OutOrStdout())
	p, err := pipeline.New(pipeline.Config{
		Resolver:  resolver.New(detector, cat),
		Fetcher:   fetch.NewHTTPFetcher(a.fetchOptions()),
		Installer: installer,
		Tester:    smoke.NewTester(a.settings.Smoke.Timeout),
		StateDir:  a.settings.StateDir,
		SkipSmoke: opts.skipSmoke,
		Observer:  out.observe,
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, pkg, version)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		out.warn(w)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "installed %s %s to %s\n",
		result.Resolution.Entry.Package, result.Resolution.Entry.Version, result.Installed.Path)

	if !shell.OnPath(installer.Dir(), os.Getenv("PATH")) {
		printPathHint(cmd, out, installer.Dir())
	}

	return nil
}

// printPathHint tells the user how to put dir on PATH for their shell.
func printPathHint(cmd *cobra.Command, out *reporter, dir string) {
	out.warn(fmt.Sprintf("%s is not on your PATH", dir))

	detected := shell.DetectShell(cmd.Context())
	hint, err := shell.PathHint(detected.Shell, dir)
	if err != nil {
		return
	}
	if rc, err := shell.RCFilePath(detected.Shell); err == nil {
		out.detail(fmt.Sprintf("add to %s: %s", rc, hint))
		return
	}
	out.detail(hint)
}
