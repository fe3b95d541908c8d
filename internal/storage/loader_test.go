package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fraudprep/internal/table"
)

// rowsOf sends every row of t on a closed, fully buffered channel.
func rowsOf(t *table.Table) <-chan []any {
	ch := make(chan []any, t.Len())
	for i := 0; i < t.Len(); i++ {
		ch <- t.Row(i)
	}
	close(ch)
	return ch
}

func featureTable(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(
		table.NewString("user_id", []string{"22058", "333320", "1359", "150084", "221365"}, nil),
		table.NewString("country", []string{"Japan", "", "United States", "Unknown", "Japan"}, []bool{true, false, true, true, true}),
		table.NewFloat("purchase_value", []float64{-0.5, 1.2, 0, 0.3, -1}, nil),
		table.NewInt("class", []int64{0, 1, 0, 0, 1}, nil),
	)
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

func TestLoadBatches_TableRows(t *testing.T) {
	t.Parallel()

	tb := featureTable(t)
	var sizes []int
	var got [][]any
	copyFn := func(_ context.Context, cols []string, rows [][]any) (int64, error) {
		if diff := cmp.Diff(tb.Names(), cols); diff != "" {
			t.Errorf("columns (-want +got):\n%s", diff)
		}
		sizes = append(sizes, len(rows))
		got = append(got, rows...)
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), nil, tb.Names(), rowsOf(tb), 2, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if diff := cmp.Diff([]int{2, 2, 1}, sizes); diff != "" {
		t.Fatalf("batch sizes (-want +got):\n%s", diff)
	}
	// A missing country reaches the backend as nil, which drivers bind as NULL.
	want := []any{"333320", nil, 1.2, int64(1)}
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Fatalf("row 1 (-want +got):\n%s", diff)
	}
}

func TestLoadBatches_EmptyTable(t *testing.T) {
	t.Parallel()

	empty := featureTable(t).Take(nil)
	calls := 0
	copyFn := func(context.Context, []string, [][]any) (int64, error) {
		calls++
		return 0, nil
	}
	total, err := LoadBatches(context.Background(), nil, empty.Names(), rowsOf(empty), 100, copyFn)
	if err != nil || total != 0 || calls != 0 {
		t.Fatalf("total = %d, calls = %d, err = %v; want 0, 0, nil", total, calls, err)
	}
}

// TestLoadBatches_StopsOnCopyError checks the first failed batch ends the
// load and the total keeps what earlier batches wrote.
func TestLoadBatches_StopsOnCopyError(t *testing.T) {
	t.Parallel()

	tb := featureTable(t)
	deadlock := errors.New("deadlock detected")
	batches := 0
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, deadlock
		}
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), nil, tb.Names(), rowsOf(tb), 2, copyFn)
	if !errors.Is(err, deadlock) {
		t.Fatalf("err = %v, want %v", err, deadlock)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if batches != 2 {
		t.Fatalf("batches = %d, want 2", batches)
	}
}

func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An open channel with no rows: only cancellation can end the load.
	in := make(chan []any)
	errCh := make(chan error, 1)
	go func() {
		_, err := LoadBatches(ctx, nil, []string{"user_id"}, in, 10, func(context.Context, []string, [][]any) (int64, error) {
			return 0, nil
		})
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("LoadBatches did not return after cancel")
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	copyFn := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	tests := []struct {
		name      string
		batchSize int
		fn        CopyFn
	}{
		{"zero batch size", 0, copyFn},
		{"negative batch size", -1, copyFn},
		{"nil copy func", 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadBatches(context.Background(), nil, nil, make(chan []any), tt.batchSize, tt.fn); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
