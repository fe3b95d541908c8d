package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fraudprep/internal/config"
	"fraudprep/internal/datasource"
	"fraudprep/internal/datasource/file"
	"fraudprep/internal/parser/csv"
	"fraudprep/internal/table"
)

// Test seams. Production code reads local files.
var (
	openSourceFn = func(path string) datasource.Source { return file.NewLocal(path) }
	readCSVFn    = csv.Read
)

// inputs holds the raw string tables. Ranges is nil when an MMDB is used and
// CreditCard is nil when no credit-card file is configured.
type inputs struct {
	Transactions *table.Table
	Ranges       *table.Table
	CreditCard   *table.Table
}

// loadInputs reads every configured input concurrently. The first failure
// cancels the other reads.
func loadInputs(ctx context.Context, log *slog.Logger, cfg config.Pipeline) (inputs, error) {
	opt := csv.OptionsFrom(cfg.Parser.Options)
	g, gctx := errgroup.WithContext(ctx)

	var in inputs
	read := func(name, path string, dst **table.Table) {
		if path == "" {
			return
		}
		o := opt
		o.Table = name
		g.Go(func() error {
			t, err := readTable(gctx, path, o)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			log.Debug("load: read", "input", name, "path", path, "rows", t.Len(), "columns", t.Width())
			*dst = t
			return nil
		})
	}

	read("transactions", cfg.Inputs.Transactions.Path, &in.Transactions)
	if cfg.Resolver.MMDB == "" {
		read("ip_ranges", cfg.Inputs.IPRanges.Path, &in.Ranges)
	}
	read("credit_card", cfg.Inputs.CreditCard.Path, &in.CreditCard)

	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	if in.Transactions == nil {
		return inputs{}, fmt.Errorf("load: transactions input is required")
	}
	if in.Ranges == nil && cfg.Resolver.MMDB == "" {
		return inputs{}, fmt.Errorf("load: ip_ranges input or resolver.mmdb is required")
	}
	return in, nil
}

// OpenInput opens a local input file, decompressing .gz and .zst paths.
func OpenInput(ctx context.Context, path string) (io.ReadCloser, error) {
	return openSourceFn(path).Open(ctx)
}

func readTable(ctx context.Context, path string, opt csv.Options) (*table.Table, error) {
	rc, err := OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := readCSVFn(ctx, rc, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
