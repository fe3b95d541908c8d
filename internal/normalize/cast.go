package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fraudprep/internal/table"
)

// Options controls timestamp parsing.
type Options struct {
	// TimestampLayout is tried before the built-in layouts when set.
	TimestampLayout string
	// Location applies to layouts without a zone. Nil means UTC.
	Location *time.Location
}

var builtinLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var (
	errNotInteger   = errors.New("not an integer")
	errNegativeIP   = errors.New("negative ip address")
	errIPOutOfRange = errors.New("ip address out of range")
	errMissing      = errors.New("value is missing")
	errNoLayout     = errors.New("no known timestamp layout matches")
)

// Transactions casts the transaction table: the IP column to Int, both
// timestamp columns to Time and the numeric columns to Float.
func Transactions(raw *table.Table, s Schema, opts Options) (*table.Table, error) {
	const name = "transactions"
	ip, err := castIP(raw, name, s.IPAddress)
	if err != nil {
		return nil, err
	}
	cols := []table.Column{ip}

	tp := newTimeParser(opts)
	for _, c := range []string{s.SignupTime, s.PurchaseTime} {
		tc, err := castTime(raw, name, c, tp)
		if err != nil {
			return nil, err
		}
		cols = append(cols, tc)
	}
	for _, c := range s.Numeric {
		fc, err := castFloat(raw, name, c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, fc)
	}
	return raw.With(cols...)
}

// Ranges casts both bound columns of the IP range table to Int and checks
// that the country column exists.
func Ranges(raw *table.Table, s Schema) (*table.Table, error) {
	const name = "ip_ranges"
	lo, err := castIP(raw, name, s.LowerBound)
	if err != nil {
		return nil, err
	}
	hi, err := castIP(raw, name, s.UpperBound)
	if err != nil {
		return nil, err
	}
	if _, err := raw.Strings(s.Country); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return raw.With(lo, hi)
}

// Numeric casts the named columns of raw to Float. Missing cells stay
// missing.
func Numeric(raw *table.Table, tableName string, cols []string) (*table.Table, error) {
	out := make([]table.Column, 0, len(cols))
	for _, c := range cols {
		fc, err := castFloat(raw, tableName, c)
		if err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return raw.With(out...)
}

// ParseIP parses a decimal IP address. Float text is truncated toward zero.
func ParseIP(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, errNegativeIP
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotInteger
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, errNotInteger
	case f < 0:
		return 0, errNegativeIP
	case f >= math.MaxInt64:
		return 0, errIPOutOfRange
	}
	return int64(f), nil
}

func castIP(raw *table.Table, tableName, col string) (table.Column, error) {
	c, ok := raw.Column(col)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", tableName, table.ErrNoColumn, col)
	}
	if c.Kind() == table.KindInt {
		if iv := c.(*table.Ints); iv.Missing() > 0 {
			return nil, &MalformedInputError{Table: tableName, Column: col, Row: firstMissing(iv), Err: errMissing}
		}
		return c, nil
	}
	sv, err := raw.Strings(col)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tableName, err)
	}
	vals := make([]int64, sv.Len())
	for i := range vals {
		s, ok := sv.At(i)
		if !ok {
			return nil, &MalformedInputError{Table: tableName, Column: col, Row: i, Err: errMissing}
		}
		n, err := ParseIP(s)
		if err != nil {
			return nil, &MalformedInputError{Table: tableName, Column: col, Row: i, Value: s, Err: err}
		}
		vals[i] = n
	}
	return table.NewInt(col, vals, nil), nil
}

func castFloat(raw *table.Table, tableName, col string) (table.Column, error) {
	c, ok := raw.Column(col)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", tableName, table.ErrNoColumn, col)
	}
	switch c.Kind() {
	case table.KindFloat:
		return c, nil
	case table.KindInt:
		iv := c.(*table.Ints)
		vals := make([]float64, iv.Len())
		for i, n := range iv.Values() {
			vals[i] = float64(n)
		}
		return table.NewFloat(col, vals, nilIfAllValid(iv.Validity())), nil
	}
	sv, err := raw.Strings(col)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tableName, err)
	}
	vals := make([]float64, sv.Len())
	valid := sv.Validity()
	for i := range vals {
		s, ok := sv.At(i)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &MalformedInputError{Table: tableName, Column: col, Row: i, Value: s, Err: err}
		}
		vals[i] = f
	}
	return table.NewFloat(col, vals, nilIfAllValid(valid)), nil
}

func castTime(raw *table.Table, tableName, col string, tp *timeParser) (table.Column, error) {
	c, ok := raw.Column(col)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", tableName, table.ErrNoColumn, col)
	}
	if c.Kind() == table.KindTime {
		return c, nil
	}
	sv, err := raw.Strings(col)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tableName, err)
	}
	vals := make([]time.Time, sv.Len())
	valid := sv.Validity()
	for i := range vals {
		s, ok := sv.At(i)
		if !ok {
			continue
		}
		ts, err := tp.parse(s)
		if err != nil {
			return nil, &MalformedInputError{Table: tableName, Column: col, Row: i, Value: s, Err: err}
		}
		vals[i] = ts
	}
	return table.NewTime(col, vals, nilIfAllValid(valid)), nil
}

// timeParser tries the configured layout, then the built-ins. The layout
// that matched last is tried first on the next call since a column nearly
// always uses a single layout.
type timeParser struct {
	layouts []string
	loc     *time.Location
	last    int
}

func newTimeParser(opts Options) *timeParser {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	var layouts []string
	if opts.TimestampLayout != "" {
		layouts = append(layouts, opts.TimestampLayout)
	}
	layouts = append(layouts, builtinLayouts...)
	return &timeParser{layouts: layouts, loc: loc}
}

func (p *timeParser) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(p.layouts[p.last], s, p.loc); err == nil {
		return t, nil
	}
	for i, layout := range p.layouts {
		if i == p.last {
			continue
		}
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			p.last = i
			return t, nil
		}
	}
	return time.Time{}, errNoLayout
}

func nilIfAllValid(valid []bool) []bool {
	for _, ok := range valid {
		if !ok {
			return valid
		}
	}
	return nil
}

func firstMissing(iv *table.Ints) int {
	for i, ok := range iv.Validity() {
		if !ok {
			return i
		}
	}
	return -1
}
