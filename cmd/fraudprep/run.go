package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fraudprep/internal/config"
	"fraudprep/internal/pipeline"
)

type pathFlags struct {
	config       string
	transactions string
	ipRanges     string
	creditCard   string
	mmdb         string
	out          string
}

// registerRanges adds only the flags needed to locate the range table.
func (f *pathFlags) registerRanges(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "pipeline config JSON path (defaults only when empty)")
	cmd.Flags().StringVar(&f.ipRanges, "ip-ranges", "", "IP range CSV (overrides config)")
}

func (f *pathFlags) register(cmd *cobra.Command) {
	f.registerRanges(cmd)
	cmd.Flags().StringVar(&f.transactions, "transactions", "", "transactions CSV (overrides config)")
	cmd.Flags().StringVar(&f.creditCard, "credit-card", "", "credit-card CSV (overrides config)")
	cmd.Flags().StringVar(&f.mmdb, "mmdb", "", "compiled range database used instead of the range CSV")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output directory (overrides config)")
}

// load reads the pipeline file and layers flag values over it. Environment
// overrides have already been applied by config.Load.
func (f *pathFlags) load() (config.Pipeline, error) {
	p, err := config.Load(f.config)
	if err != nil {
		return config.Pipeline{}, err
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&p.Inputs.Transactions.Path, f.transactions)
	override(&p.Inputs.IPRanges.Path, f.ipRanges)
	override(&p.Inputs.CreditCard.Path, f.creditCard)
	override(&p.Resolver.MMDB, f.mmdb)
	override(&p.Output.Dir, f.out)
	return p, nil
}

func newRunCmd() *cobra.Command {
	var flags pathFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the feature pipeline and write its outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFor(cmd)

			p, err := flags.load()
			if err != nil {
				return err
			}
			if err := reportIssues(log, config.ValidatePipeline(p)); err != nil {
				return err
			}

			flush, err := setupMetrics(log, p)
			if err != nil {
				return err
			}
			defer flush()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			start := time.Now()
			log.Debug("pipeline: start",
				"transactions", p.Inputs.Transactions.Path,
				"ip_ranges", p.Inputs.IPRanges.Path,
				"mmdb", p.Resolver.MMDB,
				"storage", p.Output.Storage.Kind,
			)
			res, err := pipeline.Run(ctx, p, pipeline.Options{Logger: log})
			if err != nil {
				return err
			}
			if err := pipeline.WriteOutputs(ctx, log, p, res); err != nil {
				return err
			}
			log.Info("completed", "elapsed", time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	var flags pathFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline config and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFor(cmd)
			p, err := flags.load()
			if err != nil {
				return err
			}
			if err := reportIssues(log, config.ValidatePipeline(p)); err != nil {
				return err
			}
			log.Info("configuration is valid", "path", flags.config)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// reportIssues logs every issue and fails when any is an error.
func reportIssues(log *slog.Logger, issues []config.Issue) error {
	for _, iss := range issues {
		lvl := slog.LevelWarn
		if iss.Severity == config.SeverityError {
			lvl = slog.LevelError
		}
		log.Log(context.Background(), lvl, iss.Message, "path", iss.Path)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}
