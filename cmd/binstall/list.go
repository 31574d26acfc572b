package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/binstall/internal/install"
	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
)

func (a *app) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List binaries installed by binstall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			receipts, err := install.ListReceipts(a.settings.StateDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(receipts) == 0 {
				fmt.Fprintln(out, "No packages installed.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PACKAGE\tVERSION\tPLATFORM\tPATH\tINSTALLED\tSTATUS")
			for _, r := range receipts {
				status := "ok"
				ok, err := install.Executable(r.Path)
				switch {
				case err != nil:
					status = "unknown"
					logger.WarnKV(cmd.Context(), "failed to check installed binary", "path", r.Path, "error", err)
				case !ok:
					status = "missing"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Package, r.PkgVersion, r.Platform, r.Path, r.InstalledAt.Local().Format(time.DateTime), status)
			}
			return tw.Flush()
		},
	}
}
