package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"

	"fraudprep/internal/ddl"
	"fraudprep/internal/storage"
)

func TestSplitFQN(t *testing.T) {
	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{in: "fraud_features", want: pgx.Identifier{"fraud_features"}},
		{in: "public.fraud_features", want: pgx.Identifier{"public", "fraud_features"}},
		{in: "public..t", want: pgx.Identifier{"public", "t"}},
	}
	for _, tt := range tests {
		if got := splitFQN(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("splitFQN(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFactory_UsesHookAndDialect(t *testing.T) {
	old := newRepository
	t.Cleanup(func() { newRepository = old })

	var got Config
	boom := errors.New("no server")
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return nil, nil, boom
	}

	_, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "public.t"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got != (Config{DSN: "postgres://x", Table: "public.t"}) {
		t.Fatalf("config = %+v", got)
	}
	d, ok := storage.DialectFor("postgres")
	if !ok || d.Name != ddl.Postgres.Name {
		t.Fatalf("dialect = %+v, %v", d.Name, ok)
	}
}

func TestCopyFrom_EmptyIsNoop(t *testing.T) {
	r := &Repository{cfg: Config{Table: "t"}}
	n, err := r.CopyFrom(context.Background(), []string{"a"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
