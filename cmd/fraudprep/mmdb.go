package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fraudprep/internal/config"
	"fraudprep/internal/geo"
	"fraudprep/internal/normalize"
	"fraudprep/internal/parser/csv"
	"fraudprep/internal/pipeline"
)

func newMMDBCmd() *cobra.Command {
	var (
		flags pathFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "mmdb",
		Short: "Compile the IP range table into a MaxMind database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFor(cmd)
			p, err := flags.load()
			if err != nil {
				return err
			}
			idx, err := loadIndex(cmd.Context(), p)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("mmdb: %w", err)
			}
			n, err := geo.WriteMMDB(f, idx.Ranges())
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			log.Info("mmdb: written", "path", out, "ranges", idx.Len(), "bytes", n)
			return nil
		},
	}
	flags.registerRanges(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "ranges.mmdb", "database file to write")
	return cmd
}

// loadIndex reads and indexes the configured range CSV.
func loadIndex(ctx context.Context, p config.Pipeline) (*geo.Index, error) {
	path := p.Inputs.IPRanges.Path
	if path == "" {
		return nil, fmt.Errorf("an ip ranges file is required (--ip-ranges)")
	}
	rc, err := pipeline.OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := csv.Read(ctx, rc, csv.OptionsFrom(p.Parser.Options))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	schema := normalize.SchemaFrom(p.Columns)
	ranges, err := normalize.Ranges(raw, schema)
	if err != nil {
		return nil, err
	}
	return geo.IndexFromTable(ranges, schema)
}
