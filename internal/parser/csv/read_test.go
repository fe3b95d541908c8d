package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"fraudprep/internal/config"
	"fraudprep/internal/normalize"
	"fraudprep/internal/table"
)

func TestReadBuildsStringColumns(t *testing.T) {
	in := "\uFEFFuser_id, ip_address ,country\n1,732758368.79972,Japan\n2,350311387.865908,\n"
	tbl, err := Read(context.Background(), strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := []string{"user_id", "ip_address", "country"}; !reflect.DeepEqual(tbl.Names(), want) {
		t.Fatalf("Names = %q, want %q", tbl.Names(), want)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	country, err := tbl.Strings("country")
	if err != nil {
		t.Fatalf("country: %v", err)
	}
	if v, ok := country.At(0); !ok || v != "Japan" {
		t.Fatalf("country[0] = %q,%v", v, ok)
	}
	if _, ok := country.At(1); ok {
		t.Fatalf("empty cell should be missing")
	}
}

func TestReadHeaderMapAndFolding(t *testing.T) {
	in := "Částka,Zdroj\n10,SEO\n"
	opt := OptionsFrom(config.Options{
		"fold_headers": true,
		"header_map":   map[string]any{"Castka": "Amount"},
	})
	tbl, err := Read(context.Background(), strings.NewReader(in), opt)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := []string{"Amount", "Zdroj"}; !reflect.DeepEqual(tbl.Names(), want) {
		t.Fatalf("Names = %q, want %q", tbl.Names(), want)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"ragged row", "a,b\n1,2\n3\n"},
		{"duplicate header", "a,a\n1,2\n"},
		{"blank header", "a,\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(context.Background(), strings.NewReader(tt.in), Options{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestReadRaggedRowIsMalformedInput(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader("a,b\n1,2\n3\n"), Options{Table: "transactions"})
	if !errors.Is(err, normalize.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	var me *normalize.MalformedInputError
	if !errors.As(err, &me) {
		t.Fatalf("err = %T, want *normalize.MalformedInputError", err)
	}
	if me.Row != 1 || me.Table != "transactions" {
		t.Fatalf("table, row = %q, %d; want transactions, 1", me.Table, me.Row)
	}
	if !errors.Is(err, csv.ErrFieldCount) {
		t.Fatalf("err = %v, want csv.ErrFieldCount in chain", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %q, want line number", err)
	}
}

func TestReadHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Read(ctx, strings.NewReader("a\n1\n"), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestWriteFormatsKinds(t *testing.T) {
	ts := time.Date(2015, 4, 18, 2, 47, 11, 0, time.UTC)
	tbl, err := table.New(
		table.NewString("country", []string{"Japan", ""}, []bool{true, false}),
		table.NewInt("hour_of_day", []int64{2, 3}, nil),
		table.NewFloat("age", []float64{-0.5, 1}, nil),
		table.NewTime("purchase_time", []time.Time{ts, ts}, nil),
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, tbl, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "country,hour_of_day,age,purchase_time\n" +
		"Japan,2,-0.5,2015-04-18 02:47:11\n" +
		",3,1,2015-04-18 02:47:11\n"
	if buf.String() != want {
		t.Fatalf("Write =\n%s\nwant\n%s", buf.String(), want)
	}
}
