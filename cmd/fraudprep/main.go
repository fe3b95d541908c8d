// Command fraudprep turns raw fraud transaction exports into model-ready
// feature tables.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"fraudprep/internal/config"

	// register all backends with the storage factory.
	_ "fraudprep/internal/storage/all"
)

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "fraudprep: %v\n", err)
		return exitCodeError
	}

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fraudprep",
		Short:        "Prepare fraud transaction data for model training.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newMMDBCmd(),
		newResolveIPCmd(),
	)
	return root
}

func loggerFor(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	return newLogger(verbose)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
