// Package ddl renders CREATE TABLE statements for output tables in the SQL
// dialects the storage backends speak.
package ddl

import (
	"fmt"
	"strings"

	"fraudprep/internal/table"
)

// Built-in dialects.
var (
	Postgres = Dialect{
		Name:  "postgres",
		Quote: doubleQuote,
		Types: map[table.Kind]string{
			table.KindString: "TEXT",
			table.KindInt:    "BIGINT",
			table.KindFloat:  "DOUBLE PRECISION",
			table.KindTime:   "TIMESTAMPTZ",
		},
	}
	SQLite = Dialect{
		Name:  "sqlite",
		Quote: doubleQuote,
		Types: map[table.Kind]string{
			table.KindString: "TEXT",
			table.KindInt:    "INTEGER",
			table.KindFloat:  "REAL",
			table.KindTime:   "TIMESTAMP",
		},
	}
	DuckDB = Dialect{
		Name:  "duckdb",
		Quote: doubleQuote,
		Types: map[table.Kind]string{
			table.KindString: "VARCHAR",
			table.KindInt:    "BIGINT",
			table.KindFloat:  "DOUBLE",
			table.KindTime:   "TIMESTAMPTZ",
		},
	}
	MySQL = Dialect{
		Name:  "mysql",
		Quote: func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
		Types: map[table.Kind]string{
			table.KindString: "TEXT",
			table.KindInt:    "BIGINT",
			table.KindFloat:  "DOUBLE",
			table.KindTime:   "DATETIME(6)",
		},
	}
	MSSQL = Dialect{
		Name:  "mssql",
		Quote: func(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" },
		Types: map[table.Kind]string{
			table.KindString: "NVARCHAR(MAX)",
			table.KindInt:    "BIGINT",
			table.KindFloat:  "FLOAT",
			table.KindTime:   "DATETIMEOFFSET",
		},
		Guard: func(fqn, _, create string) string {
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", strings.ReplaceAll(fqn, "'", "''"), create)
		},
	}
)

// FromTable derives a table definition from t. A column is nullable when it
// has at least one missing cell.
func FromTable(fqn string, t *table.Table, d Dialect) (TableDef, error) {
	td := TableDef{FQN: fqn}
	for _, c := range t.Columns() {
		typ, ok := d.Types[c.Kind()]
		if !ok {
			return TableDef{}, fmt.Errorf("%s ddl: no type for %s column %q", d.Name, c.Kind(), c.Name())
		}
		nullable := false
		for i := 0; i < c.Len(); i++ {
			if !c.Valid(i) {
				nullable = true
				break
			}
		}
		td.Columns = append(td.Columns, ColumnDef{Name: c.Name(), SQLType: typ, Nullable: nullable})
	}
	return td, nil
}

// BuildCreateTableSQL renders a deterministic CREATE TABLE statement that is
// a no-op when the table already exists.
//
// Each column renders as `<quoted name> <type> [NOT NULL]`.
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}
		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	quoted := d.QuoteFQN(fqn)
	body := strings.Join(cols, ",\n  ")
	if d.Guard != nil {
		return d.Guard(fqn, quoted, fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quoted, body)), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", quoted, body), nil
}

// CreateTableSQL is FromTable followed by BuildCreateTableSQL.
func CreateTableSQL(d Dialect, fqn string, t *table.Table) (string, error) {
	td, err := FromTable(fqn, t, d)
	if err != nil {
		return "", err
	}
	return BuildCreateTableSQL(d, td)
}

func doubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes a possibly schema-qualified name like "public.users" to
// `"public"."users"`.
func quoteFQN(f string, quote func(string) string) string {
	parts := strings.Split(f, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}
