package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report compat classes that drifted from their origin classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, &flags)
			if err != nil {
				return err
			}
			report, err := runScan(cmd.Context(), cfg, opts, true)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Format())
			printSummary(cmd, report)
			return nil
		},
	}

	flags.register(cmd, false)
	return cmd
}
