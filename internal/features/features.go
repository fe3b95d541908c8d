// Package features derives temporal features from the signup and purchase
// timestamps of a transaction table.
package features

import (
	"fmt"
	"time"

	"fraudprep/internal/table"
)

// Options names the input and output columns. Zero fields take the
// DefaultOptions values.
type Options struct {
	SignupColumn   string
	PurchaseColumn string

	ElapsedColumn string
	HourColumn    string
	WeekdayColumn string

	// Location is the zone hour and weekday are read in. Nil means UTC.
	Location *time.Location
}

// DefaultOptions matches the column names of the published fraud dataset.
func DefaultOptions() Options {
	return Options{
		SignupColumn:   "signup_time",
		PurchaseColumn: "purchase_time",
		ElapsedColumn:  "time_since_signup",
		HourColumn:     "hour_of_day",
		WeekdayColumn:  "day_of_week",
		Location:       time.UTC,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	set := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	set(&o.SignupColumn, d.SignupColumn)
	set(&o.PurchaseColumn, d.PurchaseColumn)
	set(&o.ElapsedColumn, d.ElapsedColumn)
	set(&o.HourColumn, d.HourColumn)
	set(&o.WeekdayColumn, d.WeekdayColumn)
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Weekday returns the day of week with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int64 {
	return int64((t.Weekday() + 6) % 7)
}

// Derive appends three columns: the seconds from signup to purchase (Float,
// negative values kept), the purchase hour 0-23 and the purchase weekday 0-6
// (Int). Rows missing either timestamp get missing features. No rows are
// removed.
func Derive(t *table.Table, opts Options) (*table.Table, error) {
	opts = opts.withDefaults()
	signup, err := t.Times(opts.SignupColumn)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	purchase, err := t.Times(opts.PurchaseColumn)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}

	n := t.Len()
	elapsed := make([]float64, n)
	hour := make([]int64, n)
	weekday := make([]int64, n)
	elapsedOK := make([]bool, n)
	calOK := make([]bool, n)
	complete := true
	for i := 0; i < n; i++ {
		p, pok := purchase.At(i)
		s, sok := signup.At(i)
		if pok {
			local := p.In(opts.Location)
			hour[i] = int64(local.Hour())
			weekday[i] = Weekday(local)
			calOK[i] = true
		}
		if pok && sok {
			elapsed[i] = p.Sub(s).Seconds()
			elapsedOK[i] = true
		} else {
			complete = false
		}
	}
	if complete {
		elapsedOK, calOK = nil, nil
	}
	var weekdayOK []bool
	if calOK != nil {
		weekdayOK = append([]bool(nil), calOK...)
	}
	out, err := t.With(
		table.NewFloat(opts.ElapsedColumn, elapsed, elapsedOK),
		table.NewInt(opts.HourColumn, hour, calOK),
		table.NewInt(opts.WeekdayColumn, weekday, weekdayOK),
	)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	return out, nil
}
