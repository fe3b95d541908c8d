// Package csv reads delimited files into in-memory tables and writes tables
// back out. Every cell is read as a string; typing is the normalizer's job.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fraudprep/internal/config"
	"fraudprep/internal/normalize"
	"fraudprep/internal/table"
)

// Options configures the reader. The zero value reads comma separated input
// with a header row and trims surrounding spaces.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// KeepSpace disables trimming of leading/trailing spaces in cells.
	KeepSpace bool

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool

	// HeaderMap maps source header names to canonical column names.
	HeaderMap map[string]string

	// FoldHeaders strips diacritics from header names before mapping.
	FoldHeaders bool

	// Table names the input in malformed-row errors.
	Table string
}

// OptionsFrom builds Options from a parser options bag. Recognized keys:
// comma (string), trim_space (bool, default true), lazy_quotes (bool),
// header_map (object), fold_headers (bool).
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:       o.Rune("comma", ','),
		KeepSpace:   !o.Bool("trim_space", true),
		LazyQuotes:  o.Bool("lazy_quotes", false),
		HeaderMap:   o.StringMap("header_map"),
		FoldHeaders: o.Bool("fold_headers", false),
	}
}

// Read consumes a header row plus data rows from r and returns a table of
// string columns in header order. Empty cells become missing values. A row
// whose width differs from the header fails the whole read with a
// *normalize.MalformedInputError naming the row and line.
//
// Cancellation is checked between rows.
func Read(ctx context.Context, r io.Reader, opt Options) (*table.Table, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.ReuseRecord = true
	cr.FieldsPerRecord = 0 // enforce header width

	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: empty input, header row required")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	names, err := normalizeHeaders(append([]string(nil), hdr...), opt)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	vals := make([][]string, len(names))
	valid := make([][]bool, len(names))
	anyMissing := make([]bool, len(names))

	for row := 0; ; row++ {
		if row&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, &normalize.MalformedInputError{Table: opt.Table, Row: row, Err: fmt.Errorf("csv: %w", err)}
			}
			return nil, fmt.Errorf("csv: %w", err)
		}
		for i, cell := range rec {
			if !opt.KeepSpace {
				cell = strings.TrimSpace(cell)
			}
			ok := cell != ""
			if !ok {
				anyMissing[i] = true
			}
			// ReuseRecord shares the backing array between rows; clone before
			// retaining.
			vals[i] = append(vals[i], strings.Clone(cell))
			valid[i] = append(valid[i], ok)
		}
	}

	cols := make([]table.Column, len(names))
	for i, name := range names {
		v := valid[i]
		if !anyMissing[i] {
			v = nil
		}
		if vals[i] == nil {
			vals[i] = []string{}
			v = nil
		}
		cols[i] = table.NewString(name, vals[i], v)
	}
	return table.New(cols...)
}
