package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ilmirus/compatgrep/pkg/scan"
)

func newAnnotateCmd(opts *globalOptions) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Report drift and write the reference archive with its origin classes annotated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, &flags)
			if err != nil {
				return err
			}
			if cfg.Output == "" {
				return fmt.Errorf("%w: no output path (use --out or set output in the config)", scan.ErrInvalidConfig)
			}
			report, err := runScan(cmd.Context(), cfg, opts, false)
			if err != nil {
				return err
			}
			if err := scan.WriteFileAtomic(cfg.Output, report.Output, 0o644); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, report.Format())
			printSummary(cmd, report)
			fmt.Fprintf(out, "annotated %d class(es) into %s\n", len(report.Annotated), cfg.Output)
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}
