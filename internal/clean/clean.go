// Package clean fills missing categorical values and removes exact duplicate
// rows.
package clean

import (
	"fmt"
	"slices"
	"sort"

	"github.com/zeebo/xxh3"

	"fraudprep/internal/table"
)

// Stats reports what Clean changed.
type Stats struct {
	// Filled counts cells that received a sentinel.
	Filled int
	// Duplicates counts removed rows.
	Duplicates int
}

// Options configures Clean.
type Options struct {
	// Fill maps a string column to the sentinel written into its missing
	// cells. Columns absent from the table are skipped.
	Fill map[string]string
}

// Clean runs FillMissing and then DropDuplicates. Applying it to its own
// output changes nothing.
func Clean(t *table.Table, opts Options) (*table.Table, Stats, error) {
	filled, n, err := FillMissing(t, opts.Fill)
	if err != nil {
		return nil, Stats{}, err
	}
	out, dups := DropDuplicates(filled)
	return out, Stats{Filled: n, Duplicates: dups}, nil
}

// FillMissing replaces missing cells of the named string columns with their
// sentinel and returns how many cells it filled.
func FillMissing(t *table.Table, fills map[string]string) (*table.Table, int, error) {
	names := make([]string, 0, len(fills))
	for name := range fills {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		cols  []table.Column
		total int
	)
	for _, name := range names {
		if !t.Has(name) {
			continue
		}
		sv, err := t.Strings(name)
		if err != nil {
			return nil, 0, fmt.Errorf("clean: fill: %w", err)
		}
		if sv.Missing() == 0 {
			continue
		}
		vals := sv.Values()
		for i := range vals {
			if !sv.Valid(i) {
				vals[i] = fills[name]
				total++
			}
		}
		cols = append(cols, table.NewString(name, vals, nil))
	}
	if len(cols) == 0 {
		return t, 0, nil
	}
	out, err := t.With(cols...)
	if err != nil {
		return nil, 0, fmt.Errorf("clean: fill: %w", err)
	}
	return out, total, nil
}

// DropDuplicates removes rows equal to an earlier row across every column,
// keeping first occurrences in their original order. Missing equals missing.
// Rows are bucketed by a hash of their cell encoding and compared cell by
// cell within a bucket, so collisions never merge distinct rows.
func DropDuplicates(t *table.Table) (*table.Table, int) {
	cols := t.Columns()
	buckets := make(map[uint64][]int, t.Len())
	keep := make([]int, 0, t.Len())
	var key []byte
	for i := 0; i < t.Len(); i++ {
		key = key[:0]
		for _, c := range cols {
			key = c.AppendKey(key, i)
		}
		h := xxh3.Hash(key)
		if slices.ContainsFunc(buckets[h], func(j int) bool { return rowsEqual(cols, i, j) }) {
			continue
		}
		buckets[h] = append(buckets[h], i)
		keep = append(keep, i)
	}
	dups := t.Len() - len(keep)
	if dups == 0 {
		return t, 0
	}
	return t.Take(keep), dups
}

func rowsEqual(cols []table.Column, i, j int) bool {
	for _, c := range cols {
		if !c.CellEqual(i, c, j) {
			return false
		}
	}
	return true
}
