// Package pipeline runs the fraud feature pipeline end to end: load the
// inputs, cast them, resolve each transaction's country from its IP, clean,
// derive temporal features and encode. Only input loading is concurrent;
// every later stage runs on the whole table in turn.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fraudprep/internal/clean"
	"fraudprep/internal/config"
	"fraudprep/internal/encode"
	"fraudprep/internal/features"
	"fraudprep/internal/geo"
	"fraudprep/internal/metrics"
	"fraudprep/internal/normalize"
	"fraudprep/internal/table"
)

// Options carries runtime collaborators that are not part of the pipeline
// file.
type Options struct {
	// Logger receives stage progress. Nil discards.
	Logger *slog.Logger
}

// Stats summarizes a run.
type Stats struct {
	TransactionsRead int
	RangesRead       int
	RangeDuplicates  int
	Resolve          geo.Stats
	Clean            clean.Stats
	TransactionsOut  int

	CreditCardRead       int
	CreditCardDuplicates int
}

// Result holds the feature tables and the transforms fitted (or loaded) to
// produce them. CreditCard and CreditTransform are nil when no credit-card
// input was configured.
type Result struct {
	Transactions    *table.Table
	CreditCard      *table.Table
	Transform       *encode.Transform
	CreditTransform *encode.Transform
	Stats           Stats
}

// Run executes the pipeline described by cfg, which must have had defaults
// applied. Any stage error aborts the run and no partial result is returned.
func Run(ctx context.Context, cfg config.Pipeline, opts Options) (*Result, error) {
	r := &runner{cfg: cfg, log: opts.Logger}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	r.log = r.log.With("job", cfg.Job)
	return r.run(ctx)
}

type runner struct {
	cfg config.Pipeline
	log *slog.Logger
}

// step times fn and reports it to the log and the metrics backend.
func (r *runner) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStep(r.cfg.Job, name, err, d)
	if err != nil {
		r.log.Error("step failed", "step", name, "err", err, "elapsed", d)
		return err
	}
	r.log.Debug("step done", "step", name, "elapsed", d)
	return nil
}

func (r *runner) run(ctx context.Context) (*Result, error) {
	cfg := r.cfg
	schema := normalize.SchemaFrom(cfg.Columns)
	res := &Result{}

	var in inputs
	if err := r.step("load", func() (err error) {
		in, err = loadInputs(ctx, r.log, cfg)
		return err
	}); err != nil {
		return nil, err
	}
	res.Stats.TransactionsRead = in.Transactions.Len()
	metrics.RecordRow(cfg.Job, metrics.RowsRead, int64(in.Transactions.Len()))
	if in.CreditCard != nil {
		res.Stats.CreditCardRead = in.CreditCard.Len()
		metrics.RecordRow(cfg.Job, metrics.RowsRead, int64(in.CreditCard.Len()))
	}

	txns, err := r.transactions(ctx, in, schema, res)
	if err != nil {
		return nil, err
	}
	res.Transactions = txns
	res.Stats.TransactionsOut = txns.Len()

	if in.CreditCard != nil {
		if err := r.creditCard(in.CreditCard, schema, res); err != nil {
			return nil, err
		}
	}

	r.log.Info("pipeline: done",
		"transactions_in", res.Stats.TransactionsRead,
		"transactions_out", res.Stats.TransactionsOut,
		"matched", res.Stats.Resolve.Matched,
		"unmatched", res.Stats.Resolve.Unmatched,
		"duplicates", res.Stats.Clean.Duplicates,
		"credit_card_rows", rowsOf(res.CreditCard),
	)
	return res, nil
}

func (r *runner) transactions(ctx context.Context, in inputs, schema normalize.Schema, res *Result) (*table.Table, error) {
	cfg := r.cfg

	loc, err := time.LoadLocation(cfg.Normalize.Location)
	if err != nil {
		return nil, fmt.Errorf("normalize.location: %w", err)
	}
	featLoc, err := time.LoadLocation(cfg.Features.Location)
	if err != nil {
		return nil, fmt.Errorf("features.location: %w", err)
	}

	var txns *table.Table
	if err := r.step("normalize", func() (err error) {
		txns, err = normalize.Transactions(in.Transactions, schema, normalize.Options{
			TimestampLayout: cfg.Normalize.TimestampLayout,
			Location:        loc,
		})
		return err
	}); err != nil {
		return nil, err
	}

	locator, closeLocator, err := r.locator(in, schema, res)
	if err != nil {
		return nil, err
	}
	defer closeLocator()

	unmatched, err := geo.ParseUnmatched(cfg.Resolver.Unmatched)
	if err != nil {
		return nil, err
	}
	if err := r.step("resolve", func() (err error) {
		txns, res.Stats.Resolve, err = geo.Resolve(txns, locator, geo.Options{
			IPColumn:      schema.IPAddress,
			CountryColumn: schema.Country,
			Unmatched:     unmatched,
			Sentinel:      cfg.Resolver.Sentinel,
			AttachBounds:  cfg.Resolver.AttachBounds && cfg.Resolver.MMDB == "",
			LowerColumn:   schema.LowerBound,
			UpperColumn:   schema.UpperBound,
		})
		return err
	}); err != nil {
		return nil, err
	}
	st := res.Stats.Resolve
	metrics.RecordRow(cfg.Job, metrics.RowsMatched, int64(st.Matched))
	metrics.RecordRow(cfg.Job, metrics.RowsUnmatched, int64(st.Unmatched))
	metrics.RecordRow(cfg.Job, metrics.RowsDropped, int64(st.Dropped))
	metrics.RecordRow(cfg.Job, metrics.RowsFilled, int64(st.Filled))
	r.log.Info("resolve: joined", "input", st.Input, "matched", st.Matched, "dropped", st.Dropped, "filled", st.Filled)

	if err := r.step("clean", func() (err error) {
		txns, res.Stats.Clean, err = clean.Clean(txns, clean.Options{Fill: cfg.Clean.Fill})
		return err
	}); err != nil {
		return nil, err
	}
	metrics.RecordRow(cfg.Job, metrics.RowsDuplicate, int64(res.Stats.Clean.Duplicates))

	fo := features.DefaultOptions()
	fo.SignupColumn = schema.SignupTime
	fo.PurchaseColumn = schema.PurchaseTime
	fo.Location = featLoc
	if err := r.step("features", func() (err error) {
		txns, err = features.Derive(txns, fo)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.step("transform", func() (err error) {
		res.Transform, err = r.transform()
		if err != nil {
			return err
		}
		if res.Transform == nil {
			res.Transform, err = encode.Fit(txns, encode.Spec{
				Categorical:   cfg.Transform.Categorical,
				Scale:         cfg.Transform.Scale,
				HandleUnknown: cfg.Transform.HandleUnknown,
			})
			if err != nil {
				return err
			}
		}
		txns, err = res.Transform.Apply(txns)
		return err
	}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

// transform loads a previously saved transform when one is configured and
// returns nil otherwise.
func (r *runner) transform() (*encode.Transform, error) {
	if r.cfg.Transform.Model == "" {
		return nil, nil
	}
	tr, err := encode.LoadFile(r.cfg.Transform.Model)
	if err != nil {
		return nil, err
	}
	r.log.Info("transform: loaded", "path", r.cfg.Transform.Model)
	return tr, nil
}

// locator returns the range lookup for the resolver: a compiled MMDB when
// configured, else an in-memory index over the range table.
func (r *runner) locator(in inputs, schema normalize.Schema, res *Result) (geo.Locator, func(), error) {
	if path := r.cfg.Resolver.MMDB; path != "" {
		m, err := geo.OpenMMDB(path)
		if err != nil {
			return nil, nil, err
		}
		r.log.Info("resolve: using mmdb", "path", path)
		return m, func() { _ = m.Close() }, nil
	}

	var idx *geo.Index
	if err := r.step("index", func() error {
		ranges, err := normalize.Ranges(in.Ranges, schema)
		if err != nil {
			return err
		}
		idx, err = geo.IndexFromTable(ranges, schema)
		return err
	}); err != nil {
		return nil, nil, err
	}
	res.Stats.RangesRead = in.Ranges.Len()
	res.Stats.RangeDuplicates = idx.Duplicates()
	if idx.Duplicates() > 0 {
		r.log.Warn("index: duplicate lower bounds, later ranges win", "count", idx.Duplicates())
	}
	return idx, func() {}, nil
}

func (r *runner) creditCard(raw *table.Table, schema normalize.Schema, res *Result) error {
	cfg := r.cfg
	var cc *table.Table
	return r.step("credit_card", func() error {
		var err error
		cc, err = normalize.Numeric(raw, "credit_card", schema.CreditNumeric)
		if err != nil {
			return err
		}
		cc, res.Stats.CreditCardDuplicates = clean.DropDuplicates(cc)
		metrics.RecordRow(cfg.Job, metrics.RowsDuplicate, int64(res.Stats.CreditCardDuplicates))

		res.CreditTransform, err = encode.Fit(cc, encode.Spec{Scale: cfg.Transform.CreditCardScale})
		if err != nil {
			return err
		}
		if cc, err = res.CreditTransform.Apply(cc); err != nil {
			return err
		}
		res.CreditCard = cc
		return nil
	})
}

func rowsOf(t *table.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}
