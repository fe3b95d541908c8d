package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvTransactions = "FRAUDPREP_TRANSACTIONS"
	EnvIPRanges     = "FRAUDPREP_IP_RANGES"
	EnvCreditCard   = "FRAUDPREP_CREDIT_CARD"
	EnvOutputDir    = "FRAUDPREP_OUTPUT_DIR"
	EnvDBDSN        = "FRAUDPREP_DB_DSN"
	EnvBatchSize    = "FRAUDPREP_DB_BATCH_SIZE"
	EnvMetrics      = "METRICS_BACKEND"
	EnvPushgateway  = "PUSHGATEWAY_URL"
	EnvDatadog      = "DD_AGENT_ADDR"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into
// the process environment without overwriting variables that are already
// set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load decodes the pipeline file at path (an empty path yields the defaults),
// applies environment overrides and then defaults. Unknown JSON fields are
// rejected so typos surface early.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Pipeline{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&p, os.LookupEnv); err != nil {
		return Pipeline{}, err
	}
	p.ApplyDefaults()
	return p, nil
}

// ApplyEnv overrides file values with environment variables. lookup is
// os.LookupEnv in production; tests pass a map-backed func.
func ApplyEnv(p *Pipeline, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvTransactions, &p.Inputs.Transactions.Path)
	str(EnvIPRanges, &p.Inputs.IPRanges.Path)
	str(EnvCreditCard, &p.Inputs.CreditCard.Path)
	str(EnvOutputDir, &p.Output.Dir)
	str(EnvDBDSN, &p.Output.Storage.DB.DSN)
	str(EnvMetrics, &p.Metrics.Backend)
	str(EnvPushgateway, &p.Metrics.PushgatewayURL)
	str(EnvDatadog, &p.Metrics.DatadogAddr)

	if v, ok := lookup(EnvBatchSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBatchSize, err)
		}
		p.Output.Storage.DB.BatchSize = n
	}
	return nil
}
