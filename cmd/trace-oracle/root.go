package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/seqlab/trace-oracle/internal/cli"
	"github.com/seqlab/trace-oracle/internal/cli/config"
	"github.com/seqlab/trace-oracle/pkg/oracle"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags persistent across commands
	cfgFile     string
	profileName string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "trace-oracle -i <traceDir> -o <metrics.csv>",
	Short: "Derives protocol and performance metrics from device trace logs.",
	Long: `trace-oracle scans event logs produced by simulated command-queue
devices, checks each run against the submission protocol, and writes one
CSV row of metrics per trace.

It features:
  - Parallel processing with deterministic output ordering.
  - A single-pass protocol checker with ordering, fence, and latency metrics.
  - Optional content-based caching for incremental sweeps.
  - An interactive Terminal UI (TUI) for monitoring progress.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, verbose, cmd.Flags())
		if err != nil {
			return err
		}

		isTTY := term.IsTerminal(int(os.Stderr.Fd()))
		// Give the terminal a beat before the TUI takes over the screen.
		if isTTY && !verbose && opts.TuiEnabled {
			time.Sleep(100 * time.Millisecond)
		}

		return cli.Run(ctx, opts, logger, isTTY)
	},
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}

// init registers flags for the root command.
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search standard locations like ., $HOME/.config/trace-oracle/)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	rootCmd.PersistentFlags().StringP("input", "i", "", "Required. Trace file or directory to scan.")
	rootCmd.PersistentFlags().StringP("output", "o", oracle.DefaultOutputFile, "Output CSV path.")
	_ = rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.Flags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	rootCmd.Flags().StringArray("ignore", []string{}, "Glob patterns for files/directories to ignore (can be specified multiple times)")
	rootCmd.Flags().String("onError", string(oracle.DefaultOnErrorMode), `Behavior on non-fatal file errors ("continue" or "stop")`)

	rootCmd.Flags().Int("concurrency", oracle.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	rootCmd.Flags().Bool("cache", oracle.DefaultCacheEnabled, "Enable the parse-result cache")
	rootCmd.Flags().Bool("no-cache", false, "Force reprocessing by ignoring cache reads (still writes cache)")
	rootCmd.Flags().Bool("clear-cache", false, "Delete the cache file before starting")

	rootCmd.Flags().String("output-format", string(oracle.DefaultOutputFormat), `Final report format ("text", "json", "yaml")`)
	rootCmd.Flags().String("trace-ext", oracle.DefaultTraceExtension, "Filename suffix selecting trace files during directory walks")
	rootCmd.Flags().String("default-encoding", oracle.DefaultEncoding, "Fallback charset when trace encoding detection is inconclusive")
}
