package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ilmirus/compatgrep/pkg/scan"
)

// runFlags are the per-command overrides of the config file.
type runFlags struct {
	shim      string
	reference string
	nested    string
	output    string
}

func (f *runFlags) register(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringVar(&f.shim, "shim", "", "library archive (aar) holding the compat classes")
	cmd.Flags().StringVar(&f.reference, "reference", "", "platform archive (jar) holding the origin classes")
	cmd.Flags().StringVar(&f.nested, "nested", scan.DefaultNestedEntry, "class archive entry inside the shim")
	if withOutput {
		cmd.Flags().StringVarP(&f.output, "out", "o", "", "where to write the annotated reference archive")
	}
}

// resolveConfig loads --config, if any, and applies the flags the user set.
func resolveConfig(cmd *cobra.Command, opts *globalOptions, f *runFlags) (scan.Config, error) {
	cfg := scan.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := scan.LoadConfig(opts.configPath)
		if err != nil {
			return scan.Config{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("shim") {
		cfg.Shim = f.shim
	}
	if flags.Changed("reference") {
		cfg.Reference = f.reference
	}
	if flags.Changed("nested") {
		cfg.NestedEntry = f.nested
	}
	if flags.Lookup("out") != nil && flags.Changed("out") {
		cfg.Output = f.output
	}

	if cfg.Shim == "" {
		return scan.Config{}, fmt.Errorf("%w: no shim archive (use --shim or set shim in the config)", scan.ErrInvalidConfig)
	}
	if cfg.Reference == "" {
		return scan.Config{}, fmt.Errorf("%w: no reference archive (use --reference or set reference in the config)", scan.ErrInvalidConfig)
	}
	return cfg, nil
}

// openSource opens path for random access. The caller closes the file.
func openSource(path string) (scan.Source, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return scan.Source{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return scan.Source{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return scan.Source{Name: path, R: f, Size: info.Size()}, f, nil
}

// runScan opens both archives named by cfg and runs the pipeline.
func runScan(ctx context.Context, cfg scan.Config, opts *globalOptions, dryRun bool) (*scan.Report, error) {
	shim, shimFile, err := openSource(cfg.Shim)
	if err != nil {
		return nil, err
	}
	defer shimFile.Close()

	ref, refFile, err := openSource(cfg.Reference)
	if err != nil {
		return nil, err
	}
	defer refFile.Close()

	return scan.Run(ctx, scan.Sources{Shim: shim, Reference: ref}, cfg, scan.Options{
		Logger: opts.logger,
		DryRun: dryRun,
	})
}

func printSummary(cmd *cobra.Command, report *scan.Report) {
	fmt.Fprintf(cmd.OutOrStdout(), "%d pair(s), %d orphan(s), %d inconsistency(ies)\n",
		len(report.Pairs), len(report.Orphans), report.Inconsistencies())
}
