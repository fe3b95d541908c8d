package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Kind identifies the element type stored in a column.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is a named, fixed-length, nullable sequence of values of one Kind.
//
// Columns are immutable once constructed: every operation that changes data
// returns a new column. This lets tables share columns between stages without
// one stage observing another's writes.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	// Valid reports whether cell i holds a value (false means missing).
	Valid(i int) bool
	// Value returns cell i as a driver-ready value, or nil when missing.
	Value(i int) any
	// AppendKey appends a canonical binary encoding of cell i to dst. Two
	// cells of the same kind encode equally iff they are equal.
	AppendKey(dst []byte, i int) []byte
	// CellEqual reports whether cell i equals cell j of other (same kind).
	CellEqual(i int, other Column, j int) bool

	take(idx []int) Column
	rename(name string) Column
}

// Vector is the single Column implementation, parameterized by element type.
type Vector[T any] struct {
	name  string
	kind  Kind
	vals  []T
	valid []bool // nil: every cell is valid
	eq    func(a, b T) bool
	key   func(dst []byte, v T) []byte
}

// Typed aliases for the four supported kinds.
type (
	Strings = Vector[string]
	Ints    = Vector[int64]
	Floats  = Vector[float64]
	Times   = Vector[time.Time]
)

// NewString builds a string column. The column takes ownership of vals and
// valid; a nil valid slice marks every cell as present.
func NewString(name string, vals []string, valid []bool) *Strings {
	return newVector(name, KindString, vals, valid,
		func(a, b string) bool { return a == b },
		func(dst []byte, v string) []byte {
			dst = binary.AppendUvarint(dst, uint64(len(v)))
			return append(dst, v...)
		})
}

// NewInt builds an int64 column.
func NewInt(name string, vals []int64, valid []bool) *Ints {
	return newVector(name, KindInt, vals, valid,
		func(a, b int64) bool { return a == b },
		func(dst []byte, v int64) []byte { return binary.BigEndian.AppendUint64(dst, uint64(v)) })
}

// NewFloat builds a float64 column. NaN compares equal to NaN.
func NewFloat(name string, vals []float64, valid []bool) *Floats {
	return newVector(name, KindFloat, vals, valid,
		func(a, b float64) bool { return a == b || (math.IsNaN(a) && math.IsNaN(b)) },
		func(dst []byte, v float64) []byte {
			if math.IsNaN(v) {
				v = math.NaN()
			}
			if v == 0 {
				v = 0 // fold -0 into +0
			}
			return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
		})
}

// NewTime builds a timestamp column. Equality is instant equality.
func NewTime(name string, vals []time.Time, valid []bool) *Times {
	return newVector(name, KindTime, vals, valid,
		func(a, b time.Time) bool { return a.Equal(b) },
		func(dst []byte, v time.Time) []byte {
			return binary.BigEndian.AppendUint64(dst, uint64(v.UnixNano()))
		})
}

func newVector[T any](name string, kind Kind, vals []T, valid []bool, eq func(a, b T) bool, key func([]byte, T) []byte) *Vector[T] {
	if valid != nil && len(valid) != len(vals) {
		panic(fmt.Sprintf("table: column %q: %d values but %d validity flags", name, len(vals), len(valid)))
	}
	return &Vector[T]{name: name, kind: kind, vals: vals, valid: valid, eq: eq, key: key}
}

func (v *Vector[T]) Name() string { return v.name }
func (v *Vector[T]) Kind() Kind   { return v.kind }
func (v *Vector[T]) Len() int     { return len(v.vals) }

func (v *Vector[T]) Valid(i int) bool {
	return v.valid == nil || v.valid[i]
}

// At returns cell i and whether it is present.
func (v *Vector[T]) At(i int) (T, bool) {
	if !v.Valid(i) {
		var zero T
		return zero, false
	}
	return v.vals[i], true
}

func (v *Vector[T]) Value(i int) any {
	if !v.Valid(i) {
		return nil
	}
	return v.vals[i]
}

// Values returns a copy of the raw values; missing cells hold the zero value.
func (v *Vector[T]) Values() []T {
	out := make([]T, len(v.vals))
	copy(out, v.vals)
	return out
}

// Validity returns a copy of the validity mask, one flag per cell.
func (v *Vector[T]) Validity() []bool {
	out := make([]bool, len(v.vals))
	for i := range out {
		out[i] = v.Valid(i)
	}
	return out
}

// Missing counts cells without a value.
func (v *Vector[T]) Missing() int {
	if v.valid == nil {
		return 0
	}
	n := 0
	for _, ok := range v.valid {
		if !ok {
			n++
		}
	}
	return n
}

func (v *Vector[T]) AppendKey(dst []byte, i int) []byte {
	if !v.Valid(i) {
		return append(dst, 0)
	}
	return v.key(append(dst, 1), v.vals[i])
}

func (v *Vector[T]) CellEqual(i int, other Column, j int) bool {
	o, ok := other.(*Vector[T])
	if !ok {
		return false
	}
	vi, vj := v.Valid(i), o.Valid(j)
	if !vi || !vj {
		return vi == vj
	}
	return v.eq(v.vals[i], o.vals[j])
}

func (v *Vector[T]) take(idx []int) Column {
	vals := make([]T, len(idx))
	var valid []bool
	if v.valid != nil {
		valid = make([]bool, len(idx))
	}
	for k, i := range idx {
		vals[k] = v.vals[i]
		if valid != nil {
			valid[k] = v.valid[i]
		}
	}
	return &Vector[T]{name: v.name, kind: v.kind, vals: vals, valid: valid, eq: v.eq, key: v.key}
}

func (v *Vector[T]) rename(name string) Column {
	cp := *v
	cp.name = name
	return &cp
}
