package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/binstall/internal/catalog"
	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
)

func (a *app) newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and author artifact catalogs",
	}
	cmd.AddCommand(a.newCatalogCheckCommand(), newCatalogDigestCommand())
	return cmd
}

func (a *app) newCatalogCheckCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a catalog and report unresolved digests",
		Long: `Check validates the catalog against its schema, checks every version and
platform, and reports entries whose digest is empty, malformed or still a
release placeholder. It exits non-zero when any problem is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cat, err := a.openCatalog(path)
			if err != nil {
				var verr *catalog.ValidationError
				if errors.As(err, &verr) {
					printProblems(cmd, verr.Problems)
					return fmt.Errorf("catalog has %d problem(s)", len(verr.Problems))
				}
				return err
			}

			if problems := cat.Validate(); len(problems) > 0 {
				printProblems(cmd, problems)
				return fmt.Errorf("catalog has %d problem(s)", len(problems))
			}

			fmt.Fprintf(out, "catalog OK: %d package(s), %d artifact(s)\n", len(cat.Packages()), len(cat.Entries()))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "catalog", "", "catalog file to check (default: settings catalog or built-in)")
	return cmd
}

func printProblems(cmd *cobra.Command, problems []catalog.Problem) {
	out := newReporter(cmd.OutOrStdout())
	for _, p := range problems {
		out.warn(p.String())
	}
}

func newCatalogDigestCommand() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "digest FILE",
		Short: "Print the catalog digest of a release artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read artifact: %w", err)
			}

			d, err := integrity.Compute(integrity.Algorithm(algorithm), data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), d.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", string(integrity.SHA256), "digest algorithm: sha256 or sha512")
	return cmd
}
