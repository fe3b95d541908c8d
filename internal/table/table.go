// Package table provides the in-memory columnar table every pipeline stage
// reads and returns: a mapping from column name to a typed, nullable column
// of fixed length. Row selection and reordering are positional (Take), never
// label aligned.
package table

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoColumn is returned (wrapped) when a named column does not exist.
var ErrNoColumn = errors.New("table: no such column")

// KindError reports a column whose Kind differs from the one requested.
type KindError struct {
	Column string
	Want   Kind
	Got    Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("table: column %q is %s, want %s", e.Column, e.Got, e.Want)
}

// Table is an ordered set of equally long, uniquely named columns.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New assembles a table. Column lengths must match and names must be unique.
func New(cols ...Column) (*Table, error) {
	t := &Table{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table: column %d is nil", i)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d", c.Name(), c.Len(), t.rows)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c.Name())
		}
		t.index[c.Name()] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name()
	}
	return out
}

// Columns returns the columns in order. The slice is a copy; the columns are
// immutable.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Strings returns the named column when it holds strings.
func (t *Table) Strings(name string) (*Strings, error) { return typed[string](t, name, KindString) }

// Ints returns the named column when it holds int64 values.
func (t *Table) Ints(name string) (*Ints, error) { return typed[int64](t, name, KindInt) }

// Floats returns the named column when it holds float64 values.
func (t *Table) Floats(name string) (*Floats, error) { return typed[float64](t, name, KindFloat) }

// Times returns the named column when it holds timestamps.
func (t *Table) Times(name string) (*Times, error) { return typed[time.Time](t, name, KindTime) }

func typed[T any](t *Table, name string, want Kind) (*Vector[T], error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if c.Kind() != want {
		return nil, &KindError{Column: name, Want: want, Got: c.Kind()}
	}
	return c.(*Vector[T]), nil
}

// With returns a new table with each column added at the end, or replacing
// the same-named column in place.
func (t *Table) With(cols ...Column) (*Table, error) {
	next := t.Columns()
	index := make(map[string]int, len(t.index)+len(cols))
	for k, v := range t.index {
		index[k] = v
	}
	for _, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table: nil column")
		}
		if len(t.cols) == 0 && t.rows > 0 && c.Len() != t.rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d", c.Name(), c.Len(), t.rows)
		}
		if i, ok := index[c.Name()]; ok {
			next[i] = c
			continue
		}
		index[c.Name()] = len(next)
		next = append(next, c)
	}
	out, err := New(next...)
	if err != nil {
		return nil, err
	}
	if len(next) == 0 {
		out.rows = t.rows
	}
	return out, nil
}

// Drop returns a new table without the named columns. Unknown names are
// ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	keep := make([]Column, 0, len(t.cols))
	for _, c := range t.cols {
		if _, ok := skip[c.Name()]; !ok {
			keep = append(keep, c)
		}
	}
	out, _ := New(keep...) // subset of a valid table is valid
	if len(keep) == 0 {
		out.rows = t.rows
	}
	return out
}

// Rename returns a new table with column from renamed to to.
func (t *Table) Rename(from, to string) (*Table, error) {
	i, ok := t.index[from]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, from)
	}
	next := t.Columns()
	next[i] = next[i].rename(to)
	return New(next...)
}

// Take returns a new table holding rows idx[0], idx[1], ... of t, in that
// order. Indices may repeat. It is the positional filter/reorder primitive.
func (t *Table) Take(idx []int) *Table {
	for _, i := range idx {
		if i < 0 || i >= t.rows {
			panic(fmt.Sprintf("table: Take index %d out of range [0,%d)", i, t.rows))
		}
	}
	cols := make([]Column, len(t.cols))
	for k, c := range t.cols {
		cols[k] = c.take(idx)
	}
	out, _ := New(cols...)
	out.rows = len(idx)
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	return t.Take(idx)
}

// Row returns row i as driver-ready values in column order; missing cells are
// nil.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.cols))
	for k, c := range t.cols {
		out[k] = c.Value(i)
	}
	return out
}

// Equal reports whether a and b have the same column names, kinds, order and
// cell values.
func Equal(a, b *Table) bool {
	if a.rows != b.rows || len(a.cols) != len(b.cols) {
		return false
	}
	for k := range a.cols {
		ca, cb := a.cols[k], b.cols[k]
		if ca.Name() != cb.Name() || ca.Kind() != cb.Kind() {
			return false
		}
		for i := 0; i < a.rows; i++ {
			if !ca.CellEqual(i, cb, i) {
				return false
			}
		}
	}
	return true
}
