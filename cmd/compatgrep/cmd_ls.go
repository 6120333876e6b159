package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ilmirus/compatgrep/pkg/archive"
)

func newLsCmd() *cobra.Command {
	var nested string

	cmd := &cobra.Command{
		Use:   "ls <archive>",
		Short: "List archive entries with their uncompressed sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, f, err := openSource(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := archive.OpenReaderAt(src.R, src.Size)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if nested != "" {
				if !a.Has(nested) {
					return fmt.Errorf("%s: %w: %s", args[0], archive.ErrEntryNotFound, nested)
				}
				if a, err = a.OpenNested(nested); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
			}
			entries, err := a.Entries()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%10d  %s\n", e.Size, e.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nested, "nested", "", "list the archive stored in this entry instead")
	return cmd
}
