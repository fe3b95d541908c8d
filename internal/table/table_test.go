package table

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		NewInt("ip", []int64{30, 10, 20}, nil),
		NewString("country", []string{"A", "", "C"}, []bool{true, false, true}),
		NewFloat("value", []float64{1.5, 2.5, 3.5}, nil),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestNewRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
	}{
		{"length mismatch", []Column{NewInt("a", []int64{1}, nil), NewInt("b", []int64{1, 2}, nil)}},
		{"duplicate name", []Column{NewInt("a", []int64{1}, nil), NewString("a", []string{"x"}, nil)}},
		{"nil column", []Column{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cols...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTypedAccessors(t *testing.T) {
	tbl := sample(t)

	if _, err := tbl.Ints("ip"); err != nil {
		t.Fatalf("Ints(ip): %v", err)
	}
	_, err := tbl.Strings("ip")
	var ke *KindError
	if !errors.As(err, &ke) || ke.Want != KindString || ke.Got != KindInt {
		t.Fatalf("Strings(ip) err = %v, want KindError string/int", err)
	}
	if _, err := tbl.Floats("missing"); !errors.Is(err, ErrNoColumn) {
		t.Fatalf("Floats(missing) err = %v, want ErrNoColumn", err)
	}
}

func TestTakeReordersAndFilters(t *testing.T) {
	tbl := sample(t)
	got := tbl.Take([]int{2, 0})

	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	ips, _ := got.Ints("ip")
	if !reflect.DeepEqual(ips.Values(), []int64{20, 30}) {
		t.Fatalf("ip = %v", ips.Values())
	}
	// original untouched
	orig, _ := tbl.Ints("ip")
	if !reflect.DeepEqual(orig.Values(), []int64{30, 10, 20}) {
		t.Fatalf("source table mutated: %v", orig.Values())
	}
}

func TestWithReplacesInPlaceAndAppends(t *testing.T) {
	tbl := sample(t)
	out, err := tbl.With(
		NewString("country", []string{"X", "Y", "Z"}, nil),
		NewInt("hour", []int64{1, 2, 3}, nil),
	)
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if want := []string{"ip", "country", "value", "hour"}; !reflect.DeepEqual(out.Names(), want) {
		t.Fatalf("Names = %v, want %v", out.Names(), want)
	}
	if _, err := tbl.With(NewInt("short", []int64{1}, nil)); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestDropAndRename(t *testing.T) {
	tbl := sample(t)
	d := tbl.Drop("value", "nope")
	if want := []string{"ip", "country"}; !reflect.DeepEqual(d.Names(), want) {
		t.Fatalf("Drop names = %v", d.Names())
	}
	empty := tbl.Drop(tbl.Names()...)
	if empty.Len() != 3 || empty.Width() != 0 {
		t.Fatalf("dropping all columns should keep row count; got len=%d width=%d", empty.Len(), empty.Width())
	}
	r, err := tbl.Rename("value", "amount")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if !r.Has("amount") || r.Has("value") {
		t.Fatalf("Rename names = %v", r.Names())
	}
}

func TestRowAndEqual(t *testing.T) {
	tbl := sample(t)
	if got, want := tbl.Row(1), []any{int64(10), nil, 2.5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Row(1) = %#v, want %#v", got, want)
	}
	if !Equal(tbl, tbl.Clone()) {
		t.Fatalf("clone should be equal")
	}
	if Equal(tbl, tbl.Take([]int{0, 1})) {
		t.Fatalf("different row counts must not be equal")
	}
}

func TestCellKeysDistinguishMissing(t *testing.T) {
	c := NewString("s", []string{"", ""}, []bool{true, false})
	k0 := string(c.AppendKey(nil, 0))
	k1 := string(c.AppendKey(nil, 1))
	if k0 == k1 {
		t.Fatalf("empty string and missing must encode differently")
	}
	if c.CellEqual(0, c, 1) {
		t.Fatalf("empty string must not equal missing")
	}

	loc := time.FixedZone("X", 3600)
	ts := time.Date(2015, 2, 24, 22, 55, 49, 0, time.UTC)
	tc := NewTime("t", []time.Time{ts, ts.In(loc)}, nil)
	if !tc.CellEqual(0, tc, 1) {
		t.Fatalf("same instant in different zones should be equal")
	}
}
