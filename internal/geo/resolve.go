package geo

import (
	"cmp"
	"fmt"
	"slices"

	"fraudprep/internal/table"
)

// Unmatched selects what happens to transactions no range covers.
type Unmatched int

const (
	// Drop removes unmatched transactions from the output.
	Drop Unmatched = iota
	// Fill keeps them with the sentinel country.
	Fill
)

func (u Unmatched) String() string {
	switch u {
	case Drop:
		return "drop"
	case Fill:
		return "fill"
	}
	return fmt.Sprintf("unmatched(%d)", int(u))
}

// ParseUnmatched maps a config value onto a policy.
func ParseUnmatched(s string) (Unmatched, error) {
	switch s {
	case "", "drop":
		return Drop, nil
	case "fill":
		return Fill, nil
	}
	return 0, fmt.Errorf("geo: unknown unmatched policy %q", s)
}

// Options configures Resolve.
type Options struct {
	IPColumn      string
	CountryColumn string
	Unmatched     Unmatched
	// Sentinel is the country given to unmatched rows under Fill.
	Sentinel string

	// AttachBounds adds the matched range's bounds as LowerColumn and
	// UpperColumn. Unmatched rows get missing bounds.
	AttachBounds bool
	LowerColumn  string
	UpperColumn  string
}

// Stats summarizes a Resolve call. Dropped and Filled split Unmatched by
// policy.
type Stats struct {
	Input     int
	Matched   int
	Unmatched int
	Dropped   int
	Filled    int
}

// Resolve joins every transaction to the range covering its IP address and
// adds the country column. Output rows are ordered by IP ascending, ties in
// input order. Unmatched rows are handled per opts.Unmatched; they are never
// an error. A matched range without a country leaves the cell missing.
func Resolve(txns *table.Table, loc Locator, opts Options) (*table.Table, Stats, error) {
	ips, err := txns.Ints(opts.IPColumn)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("geo: %w", err)
	}
	if opts.CountryColumn == "" {
		return nil, Stats{}, fmt.Errorf("geo: country column name is empty")
	}
	if ips.Missing() > 0 {
		return nil, Stats{}, fmt.Errorf("geo: %d transactions have no ip address", ips.Missing())
	}

	vals := ips.Values()
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(vals[a], vals[b]) })

	st := Stats{Input: len(vals)}
	keep := make([]int, 0, len(vals))
	var (
		country      []string
		countryOK    []bool
		lower, upper []int64
		bounded      []bool
		noCountry    int
	)
	for _, i := range order {
		r, ok := loc.Locate(vals[i])
		switch {
		case ok:
			st.Matched++
		case opts.Unmatched == Fill:
			st.Unmatched++
			st.Filled++
			r = Range{Country: opts.Sentinel}
		default:
			st.Unmatched++
			st.Dropped++
			continue
		}
		keep = append(keep, i)
		country = append(country, r.Country)
		countryOK = append(countryOK, !r.NoCountry)
		if r.NoCountry {
			noCountry++
		}
		if opts.AttachBounds {
			lower = append(lower, r.Lower)
			upper = append(upper, r.Upper)
			bounded = append(bounded, ok)
		}
	}

	out := txns.Take(keep)
	if noCountry == 0 {
		countryOK = nil
	}
	cols := []table.Column{table.NewString(opts.CountryColumn, country, countryOK)}
	if opts.AttachBounds {
		mask := bounded
		if st.Filled == 0 {
			mask = nil
		}
		cols = append(cols,
			table.NewInt(opts.LowerColumn, lower, mask),
			table.NewInt(opts.UpperColumn, slices.Clone(upper), slices.Clone(mask)))
	}
	out, err = out.With(cols...)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("geo: %w", err)
	}
	return out, st, nil
}
