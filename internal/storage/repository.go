// Package storage contains the backend-agnostic contract for persisting
// output tables and the factory that maps a storage kind to a backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fraudprep/internal/ddl"
)

// Repository is the minimal surface a backend provides.
type Repository interface {
	// CopyFrom inserts rows (aligned to columns) into the configured table
	// and returns the number of rows inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config is what every backend factory receives.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

type backend struct {
	factory Factory
	dialect ddl.Dialect
}

var (
	mu       sync.RWMutex
	backends = map[string]backend{}
)

// Register registers (or replaces) the factory and DDL dialect for kind.
// Backends call it from init.
func Register(kind string, f Factory, d ddl.Dialect) {
	mu.Lock()
	defer mu.Unlock()
	backends[kind] = backend{factory: f, dialect: d}
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	b, ok := backends[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return b.factory(ctx, cfg)
}

// DialectFor returns the DDL dialect registered for kind.
func DialectFor(kind string) (ddl.Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[kind]
	return b.dialect, ok
}

// ListKinds returns the registered kinds in sorted order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
