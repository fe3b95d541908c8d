// Package encode fits and applies feature transforms: one-hot encoding of
// nominal columns and z-score scaling of numeric columns. Fitting and
// applying are separate so a transform fitted on one dataset can be saved
// and applied to another.
package encode

import (
	"errors"
	"fmt"
	"slices"

	"fraudprep/internal/table"
)

// MissingLabel is the category given to missing nominal values.
const MissingLabel = "nan"

// Unknown-category handling.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// ErrUnknownCategory matches every UnknownCategoryError via errors.Is.
var ErrUnknownCategory = errors.New("unknown category")

// UnknownCategoryError reports a value not seen when the encoder was fitted.
type UnknownCategoryError struct {
	Column string
	Value  string
	Row    int
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("encode: column %q row %d: category %q was not seen at fit time", e.Column, e.Row, e.Value)
}

func (e *UnknownCategoryError) Is(target error) bool { return target == ErrUnknownCategory }

// Categories is the fitted vocabulary of one column. Values[0] is the
// reference category and gets no indicator column.
type Categories struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// Indicators returns the names of the k-1 indicator columns.
func (c Categories) Indicators() []string {
	if len(c.Values) < 2 {
		return nil
	}
	out := make([]string, 0, len(c.Values)-1)
	for _, v := range c.Values[1:] {
		out = append(out, c.Column+"_"+v)
	}
	return out
}

// OneHot is a fitted one-hot encoder.
type OneHot struct {
	Columns       []Categories `json:"columns"`
	HandleUnknown string       `json:"handle_unknown"`
}

// FitOneHot collects the sorted distinct categories of each column. Missing
// values form their own category sorted after every other. MissingLabel is
// reserved: a present value spelled the same is rejected.
func FitOneHot(t *table.Table, cols []string, handleUnknown string) (*OneHot, error) {
	switch handleUnknown {
	case "":
		handleUnknown = HandleUnknownError
	case HandleUnknownError, HandleUnknownIgnore:
	default:
		return nil, fmt.Errorf("encode: unknown handle_unknown %q", handleUnknown)
	}
	oh := &OneHot{HandleUnknown: handleUnknown}
	for _, name := range cols {
		sv, err := t.Strings(name)
		if err != nil {
			return nil, fmt.Errorf("encode: one-hot: %w", err)
		}
		seen := make(map[string]struct{})
		hasMissing := false
		for i := 0; i < sv.Len(); i++ {
			v, ok := sv.At(i)
			if !ok {
				hasMissing = true
				continue
			}
			if v == MissingLabel {
				return nil, fmt.Errorf("encode: one-hot: column %q row %d: value %q is reserved for missing values", name, i, v)
			}
			seen[v] = struct{}{}
		}
		values := make([]string, 0, len(seen)+1)
		for v := range seen {
			values = append(values, v)
		}
		slices.Sort(values)
		if hasMissing {
			values = append(values, MissingLabel)
		}
		oh.Columns = append(oh.Columns, Categories{Column: name, Values: values})
	}
	return oh, nil
}

// Apply drops the encoded columns and appends their Float indicator columns
// after the remaining ones. Each row has exactly one hot category per
// column, counting the implicit reference, unless an unknown category is
// ignored, in which case all of that row's indicators are zero. A present
// value equal to MissingLabel is treated as unknown.
func (oh *OneHot) Apply(t *table.Table) (*table.Table, error) {
	var (
		add  []table.Column
		drop []string
	)
	added := make(map[string]string)
	for _, c := range oh.Columns {
		sv, err := t.Strings(c.Column)
		if err != nil {
			return nil, fmt.Errorf("encode: one-hot: %w", err)
		}
		pos := make(map[string]int, len(c.Values))
		for i, v := range c.Values {
			if _, dup := pos[v]; dup {
				return nil, fmt.Errorf("encode: one-hot: column %q lists category %q twice", c.Column, v)
			}
			pos[v] = i
		}
		names := c.Indicators()
		ind := make([][]float64, len(names))
		for k := range ind {
			ind[k] = make([]float64, t.Len())
		}
		for i := 0; i < t.Len(); i++ {
			v, ok := sv.At(i)
			if !ok {
				v = MissingLabel
			}
			p, known := pos[v]
			if ok && v == MissingLabel {
				known = false
			}
			if !known {
				if oh.HandleUnknown == HandleUnknownIgnore {
					continue
				}
				return nil, &UnknownCategoryError{Column: c.Column, Value: v, Row: i}
			}
			if p > 0 {
				ind[p-1][i] = 1
			}
		}
		for k, name := range names {
			if t.Has(name) {
				return nil, fmt.Errorf("encode: one-hot: indicator %q collides with an existing column", name)
			}
			if prev, dup := added[name]; dup {
				return nil, fmt.Errorf("encode: one-hot: indicator %q of column %q collides with one of column %q", name, c.Column, prev)
			}
			added[name] = c.Column
			add = append(add, table.NewFloat(name, ind[k], nil))
		}
		drop = append(drop, c.Column)
	}
	out, err := t.Drop(drop...).With(add...)
	if err != nil {
		return nil, fmt.Errorf("encode: one-hot: %w", err)
	}
	return out, nil
}
