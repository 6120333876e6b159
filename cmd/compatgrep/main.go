package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "0.1.0-dev"

// globalOptions carries the persistent flags and the logger built from them.
type globalOptions struct {
	configPath string
	verbose    bool
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A nil logger is built from the
// --verbose flag before any subcommand runs.
func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &globalOptions{logger: logger}
	built := false

	root := &cobra.Command{
		Use:   "compatgrep",
		Short: "Find drift between compat shim classes and the platform classes they wrap",
		Long: `compatgrep pairs every FooCompat class of a support library with the
platform class Foo, reports methods whose static shim no longer lines up with
an instance method of Foo, and can annotate each platform class that has a
shim.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logger != nil {
				return nil
			}
			config := zap.NewProductionConfig()
			if opts.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = l
			built = true
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if built && opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "TOML run configuration")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newAnnotateCmd(opts))
	root.AddCommand(newLsCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "compatgrep %s\n", version)
		},
	}
}
