// Package geo resolves integer IPv4 addresses to countries through an as-of
// join against a table of inclusive [lower, upper] address ranges.
package geo

import (
	"fmt"
	"slices"

	"github.com/tidwall/btree"

	"fraudprep/internal/normalize"
	"fraudprep/internal/table"
)

// Range is one row of the range table. Bounds are inclusive. NoCountry
// marks a row whose country cell was missing; transactions it covers still
// match but carry a missing country.
type Range struct {
	Lower     int64
	Upper     int64
	Country   string
	NoCountry bool
}

// Contains reports whether ip lies within r.
func (r Range) Contains(ip int64) bool { return r.Lower <= ip && ip <= r.Upper }

// Locator finds the range covering an address.
type Locator interface {
	Locate(ip int64) (Range, bool)
}

// Index is an ordered map from lower bound to range. Lookups walk backwards
// from the address to the greatest lower bound not above it, then check the
// upper bound of that single candidate.
type Index struct {
	tree       *btree.Map[int64, Range]
	duplicates int
}

// NewIndex builds an index over ranges. Ranges sharing a lower bound keep
// the one appearing last in input order.
func NewIndex(ranges []Range) *Index {
	sorted := slices.Clone(ranges)
	slices.SortStableFunc(sorted, func(a, b Range) int {
		switch {
		case a.Lower < b.Lower:
			return -1
		case a.Lower > b.Lower:
			return 1
		}
		return 0
	})
	x := &Index{tree: btree.NewMap[int64, Range](32)}
	for _, r := range sorted {
		if _, replaced := x.tree.Set(r.Lower, r); replaced {
			x.duplicates++
		}
	}
	return x
}

// IndexFromTable builds an index from a normalized range table.
func IndexFromTable(t *table.Table, s normalize.Schema) (*Index, error) {
	lo, err := t.Ints(s.LowerBound)
	if err != nil {
		return nil, fmt.Errorf("ip ranges: %w", err)
	}
	hi, err := t.Ints(s.UpperBound)
	if err != nil {
		return nil, fmt.Errorf("ip ranges: %w", err)
	}
	country, err := t.Strings(s.Country)
	if err != nil {
		return nil, fmt.Errorf("ip ranges: %w", err)
	}
	ranges := make([]Range, t.Len())
	for i := range ranges {
		l, lok := lo.At(i)
		u, uok := hi.At(i)
		if !lok || !uok {
			return nil, fmt.Errorf("ip ranges: row %d: missing bound", i)
		}
		c, cok := country.At(i)
		ranges[i] = Range{Lower: l, Upper: u, Country: c, NoCountry: !cok}
	}
	return NewIndex(ranges), nil
}

// Locate returns the range whose lower bound is the greatest one <= ip,
// provided ip does not exceed its upper bound.
func (x *Index) Locate(ip int64) (Range, bool) {
	var (
		cand  Range
		found bool
	)
	x.tree.Descend(ip, func(_ int64, r Range) bool {
		cand, found = r, true
		return false
	})
	if !found || ip > cand.Upper {
		return Range{}, false
	}
	return cand, true
}

// Len is the number of distinct lower bounds.
func (x *Index) Len() int { return x.tree.Len() }

// Duplicates counts ranges shadowed by a later range with the same lower
// bound.
func (x *Index) Duplicates() int { return x.duplicates }

// Ranges returns the indexed ranges by ascending lower bound.
func (x *Index) Ranges() []Range {
	out := make([]Range, 0, x.tree.Len())
	x.tree.Scan(func(_ int64, r Range) bool {
		out = append(out, r)
		return true
	})
	return out
}
