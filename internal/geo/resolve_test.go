package geo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fraudprep/internal/table"
)

func defaultOpts() Options {
	return Options{
		IPColumn:      "ip_address",
		CountryColumn: "country",
		Sentinel:      "Unknown",
		LowerColumn:   "lower_bound_ip_address",
		UpperColumn:   "upper_bound_ip_address",
	}
}

func txnTable(t *testing.T, ids []string, ips []int64) *table.Table {
	t.Helper()
	tb, err := table.New(
		table.NewString("user_id", ids, nil),
		table.NewInt("ip_address", ips, nil),
	)
	require.NoError(t, err)
	return tb
}

func TestResolve_GapIsDropped(t *testing.T) {
	t.Parallel()

	x := NewIndex([]Range{{Lower: 0, Upper: 99, Country: "A"}, {Lower: 200, Upper: 299, Country: "B"}})
	txns := txnTable(t, []string{"u250", "u50", "u150"}, []int64{250, 50, 150})

	out, st, err := Resolve(txns, x, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	require.Equal(t, Stats{Input: 3, Matched: 2, Unmatched: 1, Dropped: 1}, st)

	ids, err := out.Strings("user_id")
	require.NoError(t, err)
	require.Equal(t, []string{"u50", "u250"}, ids.Values(), "output is ordered by ip")
	country, err := out.Strings("country")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, country.Values())
	require.Equal(t, []string{"user_id", "ip_address", "country"}, out.Names())
}

func TestResolve_FillKeepsUnmatched(t *testing.T) {
	t.Parallel()

	x := NewIndex([]Range{{Lower: 0, Upper: 99, Country: "A"}, {Lower: 200, Upper: 299, Country: "B"}})
	txns := txnTable(t, []string{"a", "b", "c", "d"}, []int64{150, 50, 10_000, 250})

	opts := defaultOpts()
	opts.Unmatched = Fill
	opts.AttachBounds = true
	out, st, err := Resolve(txns, x, opts)
	require.NoError(t, err)
	require.Equal(t, Stats{Input: 4, Matched: 2, Unmatched: 2, Filled: 2}, st)

	country, err := out.Strings("country")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "Unknown", "B", "Unknown"}, country.Values())

	lo, err := out.Ints("lower_bound_ip_address")
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true, false}, lo.Validity())
	hi, err := out.Ints("upper_bound_ip_address")
	require.NoError(t, err)
	v, ok := hi.At(2)
	require.True(t, ok)
	require.Equal(t, int64(299), v)
}

func TestResolve_RangeWithoutCountry(t *testing.T) {
	t.Parallel()

	x := NewIndex([]Range{{Lower: 0, Upper: 99, NoCountry: true}, {Lower: 200, Upper: 299, Country: "B"}})
	txns := txnTable(t, []string{"a", "b", "c"}, []int64{250, 50, 150})

	opts := defaultOpts()
	opts.Unmatched = Fill
	out, st, err := Resolve(txns, x, opts)
	require.NoError(t, err)
	require.Equal(t, Stats{Input: 3, Matched: 2, Unmatched: 1, Filled: 1}, st)

	country, err := out.Strings("country")
	require.NoError(t, err)
	require.Equal(t, 1, country.Missing())
	require.Equal(t, []bool{false, true, true}, country.Validity())
	for i, want := range []string{"", "Unknown", "B"} {
		if got, ok := country.At(i); ok {
			require.Equal(t, want, got, "row %d", i)
		}
	}
}

func TestResolve_EmptyRangesDropsAll(t *testing.T) {
	t.Parallel()

	out, st, err := Resolve(txnTable(t, []string{"a", "b"}, []int64{1, 2}), NewIndex(nil), defaultOpts())
	require.NoError(t, err)
	require.Equal(t, 0, out.Len())
	require.Equal(t, 2, st.Dropped)
	require.True(t, out.Has("country"))
}

func TestResolve_EqualIPsKeepInputOrder(t *testing.T) {
	t.Parallel()

	x := NewIndex([]Range{{Lower: 0, Upper: 99, Country: "A"}})
	out, _, err := Resolve(txnTable(t, []string{"x", "y", "z"}, []int64{7, 3, 7}), x, defaultOpts())
	require.NoError(t, err)
	ids, err := out.Strings("user_id")
	require.NoError(t, err)
	require.Equal(t, []string{"y", "x", "z"}, ids.Values())
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	x := NewIndex(nil)
	strIPs, err := table.New(table.NewString("ip_address", []string{"1"}, nil))
	require.NoError(t, err)
	_, _, err = Resolve(strIPs, x, defaultOpts())
	var ke *table.KindError
	require.ErrorAs(t, err, &ke)

	missing, err := table.New(table.NewInt("ip_address", []int64{1, 0}, []bool{true, false}))
	require.NoError(t, err)
	_, _, err = Resolve(missing, x, defaultOpts())
	require.ErrorContains(t, err, "no ip address")
}

func TestParseUnmatched(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Unmatched{"": Drop, "drop": Drop, "fill": Fill} {
		got, err := ParseUnmatched(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseUnmatched("keep")
	require.Error(t, err)
}
