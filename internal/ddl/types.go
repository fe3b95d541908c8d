package ddl

import "fraudprep/internal/table"

// ColumnDef describes a single column in a table definition.
//
// Name is the logical column name; quoting happens at render time. SQLType is
// the dialect's type for the column.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name (optionally schema-qualified, e.g.
// "public.fraud_features") and its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures the per-backend differences the builders need.
type Dialect struct {
	Name string
	// Quote quotes one identifier segment.
	Quote func(string) string
	// Types maps each table kind to a column type.
	Types map[table.Kind]string
	// Guard wraps a CREATE TABLE so it is a no-op when the table exists.
	// Nil means the dialect supports IF NOT EXISTS.
	Guard func(fqn, quotedFQN, create string) string
}

// QuoteFQN quotes each dotted segment of name. Empty segments are dropped.
func (d Dialect) QuoteFQN(name string) string {
	return quoteFQN(name, d.Quote)
}
