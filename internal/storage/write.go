package storage

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fraudprep/internal/ddl"
	"fraudprep/internal/table"
)

// EnsureTable creates name in repo if it does not exist, with column types
// derived from t in kind's dialect.
func EnsureTable(ctx context.Context, kind string, repo Repository, name string, t *table.Table) error {
	d, ok := DialectFor(kind)
	if !ok {
		return fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	stmt, err := ddl.CreateTableSQL(d, name, t)
	if err != nil {
		return fmt.Errorf("infer table definition: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// WriteTable streams every row of t into repo in batches of batchSize. One
// goroutine produces rows while LoadBatches flushes them.
func WriteTable(ctx context.Context, log *slog.Logger, repo Repository, t *table.Table, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	g, ctx := errgroup.WithContext(ctx)
	rows := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(rows)
		for i := 0; i < t.Len(); i++ {
			select {
			case rows <- t.Row(i):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		n, err := LoadBatches(ctx, log, t.Names(), rows, batchSize, repo.CopyFrom)
		total = n
		return err
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}
