package clean

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"fraudprep/internal/table"
)

func mustTable(t *testing.T, cols ...table.Column) *table.Table {
	t.Helper()
	tb, err := table.New(cols...)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tb
}

func rows(tb *table.Table) [][]any {
	out := make([][]any, tb.Len())
	for i := range out {
		out[i] = tb.Row(i)
	}
	return out
}

func TestDropDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		in       *table.Table
		wantRows [][]any
		wantDups int
	}{
		{
			name: "identical rows collapse to first",
			in: mustTable(t,
				table.NewString("user", []string{"a", "b", "a", "a"}, nil),
				table.NewFloat("value", []float64{1, 2, 1, 1}, nil),
			),
			wantRows: [][]any{{"a", 1.0}, {"b", 2.0}},
			wantDups: 2,
		},
		{
			name: "one differing field keeps both",
			in: mustTable(t,
				table.NewString("user", []string{"a", "a"}, nil),
				table.NewFloat("value", []float64{1, 1.5}, nil),
			),
			wantRows: [][]any{{"a", 1.0}, {"a", 1.5}},
		},
		{
			name: "missing equals missing",
			in: mustTable(t,
				table.NewString("country", []string{"", "", "x"}, []bool{false, false, true}),
			),
			wantRows: [][]any{{nil}, {"x"}},
			wantDups: 1,
		},
		{
			name: "missing differs from empty string",
			in: mustTable(t,
				table.NewString("country", []string{"", ""}, []bool{false, true}),
			),
			wantRows: [][]any{{nil}, {""}},
		},
		{
			name:     "empty table",
			in:       mustTable(t, table.NewString("c", nil, nil)),
			wantRows: [][]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dups := DropDuplicates(tt.in)
			if dups != tt.wantDups {
				t.Fatalf("dups = %d, want %d", dups, tt.wantDups)
			}
			if diff := cmp.Diff(tt.wantRows, rows(got)); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFillMissing(t *testing.T) {
	in := mustTable(t,
		table.NewString("country", []string{"A", "", ""}, []bool{true, false, false}),
		table.NewString("browser", []string{"", "IE", "Chrome"}, []bool{false, true, true}),
		table.NewInt("ip", []int64{1, 2, 3}, nil),
	)
	got, n, err := FillMissing(in, map[string]string{"country": "Unknown", "absent": "x"})
	if err != nil {
		t.Fatalf("FillMissing: %v", err)
	}
	if n != 2 {
		t.Fatalf("filled = %d, want 2", n)
	}
	country, _ := got.Strings("country")
	if diff := cmp.Diff([]string{"A", "Unknown", "Unknown"}, country.Values()); diff != "" {
		t.Fatalf("country (-want +got):\n%s", diff)
	}
	browser, _ := got.Strings("browser")
	if browser.Missing() != 1 {
		t.Fatalf("browser should be untouched")
	}

	if _, _, err := FillMissing(in, map[string]string{"ip": "0"}); err == nil {
		t.Fatalf("expected kind error for int column")
	}
}

func TestClean_Idempotent(t *testing.T) {
	in := mustTable(t,
		table.NewString("country", []string{"A", "", "A", ""}, []bool{true, false, true, false}),
		table.NewString("source", []string{"SEO", "Ads", "SEO", "Ads"}, nil),
	)
	opts := Options{Fill: map[string]string{"country": "Unknown"}}

	once, st, err := Clean(in, opts)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if st != (Stats{Filled: 2, Duplicates: 2}) {
		t.Fatalf("stats = %+v", st)
	}
	twice, st2, err := Clean(once, opts)
	if err != nil {
		t.Fatalf("Clean twice: %v", err)
	}
	if st2 != (Stats{}) {
		t.Fatalf("second pass changed data: %+v", st2)
	}
	if !table.Equal(once, twice) {
		t.Fatalf("Clean is not idempotent:\n%v\n%v", rows(once), rows(twice))
	}
	if diff := cmp.Diff([][]any{{"A", "SEO"}, {"Unknown", "Ads"}}, rows(once)); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}
