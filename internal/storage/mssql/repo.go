// Package mssql writes prepared output tables (fraud features, credit-card
// features) to Microsoft SQL Server. Each batch from the storage loader is
// sent through the go-mssqldb bulk copy protocol inside its own transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config names the server and the output table, optionally schema
// qualified (dbo.fraud_features).
type Config struct {
	DSN   string
	Table string
}

// Repository bulk-loads rows into one output table.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository checks the sqlserver:// DSN before dialing so a typo fails
// without a network round trip, then pings the server.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	if cfg.Table == "" {
		return nil, nil, fmt.Errorf("mssql: output table name is required")
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mssql open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mssql ping: %w", err)
	}
	return &Repository{db: db, table: cfg.Table}, func() { _ = db.Close() }, nil
}

// bulkOptions keeps missing cells as NULL instead of letting column
// defaults fill them.
func bulkOptions(rows int) mssql.BulkOptions {
	return mssql.BulkOptions{KeepNulls: true, RowsPerBatch: rows}
}

// CopyFrom sends one loader batch. Either every row of the batch lands or
// none does.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.table, bulkOptions(len(rows)), columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql prepare bulk copy into %s: %w", r.table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("mssql bulk copy row %d: %w", i, err)
		}
	}
	// An argument-less Exec flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql bulk copy flush: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql commit: %w", err)
	}
	return n, nil
}

// Exec runs DDL such as the guarded CREATE TABLE for the output table.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}
