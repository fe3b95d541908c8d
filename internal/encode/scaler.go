package encode

import (
	"fmt"
	"math"

	"fraudprep/internal/table"
)

// ColumnScale holds the fitted parameters of one column. Scale is the
// population standard deviation, or 1 when the column is constant.
type ColumnScale struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// Scaler is a fitted z-score scaler.
type Scaler struct {
	Columns []ColumnScale `json:"columns"`
}

// FitScaler computes mean and population standard deviation over the
// present values of each column. Int columns are read as floats.
func FitScaler(t *table.Table, cols []string) (*Scaler, error) {
	s := &Scaler{}
	for _, name := range cols {
		vals, valid, err := floats(t, name)
		if err != nil {
			return nil, err
		}
		var (
			n   int
			sum float64
		)
		for i, v := range vals {
			if valid[i] {
				sum += v
				n++
			}
		}
		cs := ColumnScale{Column: name, Scale: 1}
		if n > 0 {
			cs.Mean = sum / float64(n)
			var sq float64
			for i, v := range vals {
				if valid[i] {
					d := v - cs.Mean
					sq += d * d
				}
			}
			if std := math.Sqrt(sq / float64(n)); std > 0 {
				cs.Scale = std
			}
		}
		s.Columns = append(s.Columns, cs)
	}
	return s, nil
}

// Apply replaces every fitted column with (x - mean) / scale. The column
// becomes Float and keeps its position; missing cells stay missing.
func (s *Scaler) Apply(t *table.Table) (*table.Table, error) {
	cols := make([]table.Column, 0, len(s.Columns))
	for _, cs := range s.Columns {
		vals, valid, err := floats(t, cs.Column)
		if err != nil {
			return nil, err
		}
		allValid := true
		for i := range vals {
			if !valid[i] {
				allValid = false
				continue
			}
			vals[i] = (vals[i] - cs.Mean) / cs.Scale
		}
		if allValid {
			valid = nil
		}
		cols = append(cols, table.NewFloat(cs.Column, vals, valid))
	}
	out, err := t.With(cols...)
	if err != nil {
		return nil, fmt.Errorf("encode: scale: %w", err)
	}
	return out, nil
}

// floats returns a fresh copy of a numeric column's values and validity.
func floats(t *table.Table, name string) ([]float64, []bool, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, nil, fmt.Errorf("encode: scale: %w: %q", table.ErrNoColumn, name)
	}
	switch c.Kind() {
	case table.KindFloat:
		fv := c.(*table.Floats)
		return fv.Values(), fv.Validity(), nil
	case table.KindInt:
		iv := c.(*table.Ints)
		out := make([]float64, iv.Len())
		for i, v := range iv.Values() {
			out[i] = float64(v)
		}
		return out, iv.Validity(), nil
	}
	return nil, nil, fmt.Errorf("encode: scale: %w", &table.KindError{Column: name, Want: table.KindFloat, Got: c.Kind()})
}
