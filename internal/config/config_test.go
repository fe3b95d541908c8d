package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// -----------------------------------------------------------------------------
// Pipeline decoding tests
// -----------------------------------------------------------------------------

func TestPipeline_DecodeAndDefaults(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "nightly",
	  "inputs": {
	    "transactions": { "path": "data/Fraud_Data.csv" },
	    "ip_ranges":    { "path": "data/IpAddress_to_Country.csv" }
	  },
	  "parser": { "kind": "csv", "options": { "comma": ";", "header_map": { "IP": "ip_address" } } },
	  "resolver": { "unmatched": "fill", "sentinel": "ZZ" },
	  "transform": { "categorical": ["source"] }
	}`

	var p Pipeline
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p.ApplyDefaults()

	if got, want := p.Parser.Options.Rune("comma", ','), ';'; got != want {
		t.Fatalf("comma = %q, want %q", got, want)
	}
	if got := p.Parser.Options.StringMap("header_map"); !reflect.DeepEqual(got, map[string]string{"IP": "ip_address"}) {
		t.Fatalf("header_map = %v", got)
	}
	if p.Resolver.Unmatched != UnmatchedFill || p.Resolver.Sentinel != "ZZ" {
		t.Fatalf("resolver = %+v", p.Resolver)
	}
	if !reflect.DeepEqual(p.Transform.Categorical, []string{"source"}) {
		t.Fatalf("categorical should keep explicit value, got %v", p.Transform.Categorical)
	}
	if !reflect.DeepEqual(p.Transform.Scale, []string{"purchase_value", "time_since_signup", "age"}) {
		t.Fatalf("scale default = %v", p.Transform.Scale)
	}
	if p.Columns.LowerBound != "lower_bound_ip_address" || p.Columns.Country != "country" {
		t.Fatalf("column defaults = %+v", p.Columns)
	}
	if got := p.Clean.Fill["country"]; got != DefaultSentinel {
		t.Fatalf("clean fill default = %q", got)
	}
	if p.Features.Location != "UTC" {
		t.Fatalf("features.location should inherit normalize.location, got %q", p.Features.Location)
	}
}

func TestOptions_NullDecodesToEmptyMap(t *testing.T) {
	t.Parallel()

	var p Parser
	if err := json.Unmarshal([]byte(`{"kind":"csv","options":null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Options == nil {
		t.Fatalf("Options should be non-nil after null")
	}
	if got := p.Options.Bool("trim_space", true); !got {
		t.Fatalf("missing key should yield default")
	}
}

func TestOptions_TypedGetters(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":    "x",
		"b":    true,
		"n":    float64(7),
		"i":    3,
		"bad":  []any{1},
		"m":    map[string]any{"a": "b", "skip": 1},
		"rune": "",
	}
	if o.String("s", "d") != "x" || o.String("b", "d") != "d" {
		t.Fatalf("String getter")
	}
	if !o.Bool("b", false) || o.Bool("s", false) {
		t.Fatalf("Bool getter")
	}
	if o.Int("n", 0) != 7 || o.Int("i", 0) != 3 || o.Int("bad", 9) != 9 {
		t.Fatalf("Int getter")
	}
	if o.Rune("rune", ',') != ',' {
		t.Fatalf("empty string should yield default rune")
	}
	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"a": "b"}) {
		t.Fatalf("StringMap = %v", got)
	}
}

func TestLoad_FileEnvAndUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.json")
	if err := os.WriteFile(path, []byte(`{"inputs":{"transactions":{"path":"a.csv"}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvIPRanges, "ranges.csv")
	t.Setenv(EnvBatchSize, "250")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Inputs.Transactions.Path != "a.csv" || p.Inputs.IPRanges.Path != "ranges.csv" {
		t.Fatalf("inputs = %+v", p.Inputs)
	}
	if p.Output.Storage.DB.BatchSize != 250 {
		t.Fatalf("batch size = %d, want 250", p.Output.Storage.DB.BatchSize)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"inputz":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestApplyEnv_BadBatchSize(t *testing.T) {
	t.Parallel()

	env := map[string]string{EnvBatchSize: "lots"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	var p Pipeline
	if err := ApplyEnv(&p, lookup); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
}

func TestLoadDotEnv_SetsUnsetVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FRAUDPREP_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FRAUDPREP_TEST_DOTENV", "")
	os.Unsetenv("FRAUDPREP_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("FRAUDPREP_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("env = %q, want from-file", got)
	}
}

func TestSampleConfigsValidate(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "configs", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Skip("no sample configs")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if issues := ValidatePipeline(p); HasErrors(issues) {
				t.Fatalf("issues: %+v", issues)
			}
		})
	}
}
