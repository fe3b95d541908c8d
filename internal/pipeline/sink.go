package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fraudprep/internal/config"
	"fraudprep/internal/encode"
	"fraudprep/internal/metrics"
	"fraudprep/internal/parser/csv"
	"fraudprep/internal/storage"
	"fraudprep/internal/table"
)

// File names written under output.dir.
const (
	TransactionsFile = "transactions.csv"
	CreditCardFile   = "creditcard.csv"
)

var newRepositoryFn = storage.New

// WriteOutputs persists res to every sink cfg configures: CSV files under
// output.dir, the fitted transforms as JSON, and a database table per result.
func WriteOutputs(ctx context.Context, log *slog.Logger, cfg config.Pipeline, res *Result) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	out := cfg.Output

	if out.Dir != "" {
		if err := os.MkdirAll(out.Dir, 0o755); err != nil {
			return fmt.Errorf("sink: create output dir: %w", err)
		}
		if err := writeCSVFile(filepath.Join(out.Dir, TransactionsFile), res.Transactions); err != nil {
			return err
		}
		if res.CreditCard != nil {
			if err := writeCSVFile(filepath.Join(out.Dir, CreditCardFile), res.CreditCard); err != nil {
				return err
			}
		}
		log.Info("sink: csv written", "dir", out.Dir)
	}

	if out.TransformFile != "" {
		if err := saveTransform(out.TransformFile, res.Transform); err != nil {
			return err
		}
		if res.CreditTransform != nil {
			if err := saveTransform(creditTransformPath(out.TransformFile), res.CreditTransform); err != nil {
				return err
			}
		}
		log.Info("sink: transform saved", "path", out.TransformFile)
	}

	if out.Storage.Kind != "" {
		db := out.Storage.DB
		if err := writeStorage(ctx, log, cfg, db.TransactionsTable, res.Transactions); err != nil {
			return err
		}
		if res.CreditCard != nil {
			if err := writeStorage(ctx, log, cfg, db.CreditCardTable, res.CreditCard); err != nil {
				return err
			}
		}
	}
	return nil
}

// creditTransformPath derives the credit-card transform file from the
// transactions one: "model.json" becomes "model_creditcard.json".
func creditTransformPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_creditcard" + ext
}

func writeCSVFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	if err := csv.Write(f, t, csv.WriteOptions{}); err != nil {
		f.Close()
		return fmt.Errorf("sink: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sink: close %s: %w", path, err)
	}
	return nil
}

func saveTransform(path string, tr *encode.Transform) error {
	if tr == nil {
		return nil
	}
	if err := tr.SaveFile(path); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

func writeStorage(ctx context.Context, log *slog.Logger, cfg config.Pipeline, name string, t *table.Table) error {
	s := cfg.Output.Storage
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: s.Kind, DSN: s.DB.DSN, Table: name})
	if err != nil {
		return fmt.Errorf("sink: open %s: %w", s.Kind, err)
	}
	defer repo.Close()

	if s.DB.AutoCreateTable {
		if err := storage.EnsureTable(ctx, s.Kind, repo, name, t); err != nil {
			return fmt.Errorf("sink: %s: %w", name, err)
		}
	}

	n, err := storage.WriteTable(ctx, log.With("table", name), repo, t, s.DB.BatchSize)
	if err != nil {
		return fmt.Errorf("sink: write %s: %w", name, err)
	}
	batches := (n + int64(s.DB.BatchSize) - 1) / int64(s.DB.BatchSize)
	metrics.RecordRow(cfg.Job, metrics.RowsWritten, n)
	metrics.RecordBatches(cfg.Job, batches)
	log.Info("sink: table written", "kind", s.Kind, "table", name, "rows", n, "batches", batches)
	return nil
}
