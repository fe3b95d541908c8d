package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"fraudprep/internal/table"
)

// DefaultTimeLayout matches the timestamp format of the input datasets.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// WriteOptions configures Write.
type WriteOptions struct {
	Comma      rune
	TimeLayout string
}

// Write emits t as CSV with a header row. Missing cells are written empty.
func Write(w io.Writer, t *table.Table, opt WriteOptions) error {
	cw := csv.NewWriter(w)
	if opt.Comma != 0 {
		cw.Comma = opt.Comma
	}
	layout := opt.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}

	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	cols := t.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for k, c := range cols {
			rec[k] = formatCell(c.Value(i), layout)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any, layout string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(layout)
	default:
		return fmt.Sprint(x)
	}
}
