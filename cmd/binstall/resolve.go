package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/binstall/internal/resolver"
)

type resolveOptions struct {
	catalog  string
	platform platformFlags
}

func (a *app) newResolveCommand() *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve PACKAGE VERSION",
		Short: "Show the artifact a package version resolves to on this platform",
		Long: `Resolve runs platform detection and the catalog lookup of an install and
prints the selected artifact. Nothing is downloaded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.openCatalog(opts.catalog)
			if err != nil {
				return err
			}
			detector, err := opts.platform.detector()
			if err != nil {
				return err
			}

			res, err := resolver.New(detector, cat).Resolve(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			entry := res.Entry
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "package\t%s\n", entry.Package)
			fmt.Fprintf(tw, "version\t%s\n", entry.Version)
			fmt.Fprintf(tw, "platform\t%s\n", entry.Platform)
			fmt.Fprintf(tw, "url\t%s\n", entry.URL)
			fmt.Fprintf(tw, "digest\t%s\n", entry.Digest)
			fmt.Fprintf(tw, "format\t%s\n", entry.Format)
			fmt.Fprintf(tw, "binary\t%s\n", res.Package.Binary)
			if entry.SignatureURL != "" {
				fmt.Fprintf(tw, "signature\t%s\n", entry.SignatureURL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if err := entry.Digest.Check(); err != nil {
				newReporter(cmd.OutOrStdout()).warn(fmt.Sprintf("this artifact cannot be installed: %v", err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "catalog file to resolve against")
	opts.platform.register(cmd)

	return cmd
}
