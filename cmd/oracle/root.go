package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/oracles"
	"github.com/banshee-data/scenario.report/internal/version"
)

var logFlags struct {
	verbose bool
	trace   bool
	quiet   bool
}

func newRootCmd(reg *oracle.Registry) *cobra.Command {
	root := &cobra.Command{
		Use:   "oracle",
		Short: "Judge autonomous-driving scenario records with pluggable oracles",
		Long: `oracle replays a recorded driving scenario through a set of analyzers
(acceleration, collision, destination, optimal, speeding) and writes the
violations they report.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&logFlags.verbose, "verbose", false, "Log per-run diagnostics to stderr")
	pf.BoolVar(&logFlags.trace, "trace", false, "Log per-message telemetry to stderr (very noisy)")
	pf.BoolVarP(&logFlags.quiet, "quiet", "q", false, "Suppress warnings")

	root.AddCommand(newAnalyzeCmd(reg))
	root.AddCommand(newListCmd(reg))
	root.AddCommand(newRunsCmd())
	return root
}

func configureLogging(stderr io.Writer) {
	var ops, diag, trace io.Writer
	if !logFlags.quiet {
		ops = stderr
	}
	if logFlags.verbose || logFlags.trace {
		diag = stderr
	}
	if logFlags.trace {
		trace = stderr
	}
	oracle.SetLogWriters(ops, diag, trace)
	oracles.SetLogWriters(ops, diag, trace)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(oracles.DefaultRegistry()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
