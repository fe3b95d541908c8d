// Package normalize casts raw string tables into the typed tables the rest of
// the pipeline works on: integer IPs, parsed timestamps, float measures.
package normalize

import "fraudprep/internal/config"

// Schema names the columns the normalizer casts. Columns not named here pass
// through unchanged.
type Schema struct {
	IPAddress    string
	SignupTime   string
	PurchaseTime string
	Numeric      []string

	LowerBound string
	UpperBound string
	Country    string

	CreditNumeric []string
}

// DefaultSchema returns the column names of the published fraud datasets.
func DefaultSchema() Schema {
	return SchemaFrom(defaultColumns())
}

// SchemaFrom maps the config column block onto a Schema.
func SchemaFrom(c config.Columns) Schema {
	return Schema{
		IPAddress:     c.IPAddress,
		SignupTime:    c.SignupTime,
		PurchaseTime:  c.PurchaseTime,
		Numeric:       append([]string(nil), c.Numeric...),
		LowerBound:    c.LowerBound,
		UpperBound:    c.UpperBound,
		Country:       c.Country,
		CreditNumeric: append([]string(nil), c.CreditNumber...),
	}
}

func defaultColumns() config.Columns {
	var p config.Pipeline
	p.ApplyDefaults()
	return p.Columns
}
