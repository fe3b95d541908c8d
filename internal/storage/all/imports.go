// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it runs each backend's init,
// which registers its factory and DDL dialect. After that the following kinds
// are available to storage.New:
//
//   - "postgres" (internal/storage/postgres)
//   - "mssql"    (internal/storage/mssql)
//   - "mysql"    (internal/storage/mysql)
//   - "sqlite"   (internal/storage/sqlite)
//   - "duckdb"   (internal/storage/duckdb)
//
// A binary that needs only a subset can import those backends directly.
package all

import (
	_ "fraudprep/internal/storage/duckdb"
	_ "fraudprep/internal/storage/mssql"
	_ "fraudprep/internal/storage/mysql"
	_ "fraudprep/internal/storage/postgres"
	_ "fraudprep/internal/storage/sqlite"
)
