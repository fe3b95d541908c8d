// Package config defines the JSON-serializable configuration model for the
// fraud feature pipeline. Field names in Go mirror the JSON structure of
// pipeline files under configs/*.json.
//
// Example (trimmed):
//
//	{
//	  "job": "fraud_prep",
//	  "inputs": {
//	    "transactions": { "path": "data/Fraud_Data.csv" },
//	    "ip_ranges":    { "path": "data/IpAddress_to_Country.csv" }
//	  },
//	  "resolver":  { "unmatched": "drop" },
//	  "transform": { "categorical": ["source", "browser", "sex"] },
//	  "output":    { "dir": "out" }
//	}
package config

import "encoding/json"

// Unmatched policies for the range resolver.
const (
	UnmatchedDrop = "drop"
	UnmatchedFill = "fill"
)

// Unknown-category handling for the one-hot encoder.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// DefaultSentinel is substituted for countries that could not be resolved.
const DefaultSentinel = "Unknown"

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; used for metrics labeling.
	Job string `json:"job"`

	Inputs    Inputs    `json:"inputs"`
	Parser    Parser    `json:"parser"`
	Columns   Columns   `json:"columns"`
	Normalize Normalize `json:"normalize"`
	Resolver  Resolver  `json:"resolver"`
	Clean     Clean     `json:"clean"`
	Features  Features  `json:"features"`
	Transform Transform `json:"transform"`
	Output    Output    `json:"output"`
	Metrics   Metrics   `json:"metrics"`
}

// Inputs lists the three delimited input files. CreditCard is optional.
type Inputs struct {
	Transactions File `json:"transactions"`
	IPRanges     File `json:"ip_ranges"`
	CreditCard   File `json:"credit_card"`
}

// File points at a local file. Paths ending in .gz or .zst are decompressed.
type File struct {
	Path string `json:"path"`
}

// Parser selects how raw bytes become tables.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options is interpreted by the parser. For CSV: comma (string),
	// trim_space (bool), lazy_quotes (bool), header_map (object),
	// fold_headers (bool).
	Options Options `json:"options"`
}

// Columns names the input columns the pipeline relies on. Empty fields take
// the defaults of the published fraud datasets.
type Columns struct {
	IPAddress    string   `json:"ip_address"`
	SignupTime   string   `json:"signup_time"`
	PurchaseTime string   `json:"purchase_time"`
	Numeric      []string `json:"numeric"`
	LowerBound   string   `json:"lower_bound"`
	UpperBound   string   `json:"upper_bound"`
	Country      string   `json:"country"`
	CreditNumber []string `json:"credit_card_numeric"`
}

// Normalize configures type casting.
type Normalize struct {
	// TimestampLayout is tried before the built-in layouts.
	TimestampLayout string `json:"timestamp_layout"`
	// Location is an IANA zone name for timestamps without an offset.
	Location string `json:"location"`
}

// Resolver configures the IP range join.
type Resolver struct {
	// Unmatched is "drop" (default) or "fill".
	Unmatched string `json:"unmatched"`
	// Sentinel is the country used by the "fill" policy.
	Sentinel string `json:"sentinel"`
	// AttachBounds copies the matched range's bounds onto each transaction.
	AttachBounds bool `json:"attach_bounds"`
	// MMDB optionally points at a compiled range database used instead of the
	// range CSV.
	MMDB string `json:"mmdb"`
}

// Clean configures missing-value fills (column -> sentinel).
type Clean struct {
	Fill map[string]string `json:"fill"`
}

// Features configures temporal feature derivation.
type Features struct {
	Location string `json:"location"`
}

// Transform configures encoding and scaling.
type Transform struct {
	Categorical     []string `json:"categorical"`
	Scale           []string `json:"scale"`
	CreditCardScale []string `json:"credit_card_scale"`
	HandleUnknown   string   `json:"handle_unknown"`
	// Model optionally points at a previously saved transform to apply
	// instead of fitting on the input.
	Model string `json:"model"`
}

// Output selects where results go.
type Output struct {
	// Dir receives transactions.csv and creditcard.csv when set.
	Dir string `json:"dir"`
	// TransformFile receives the fitted transform as JSON when set.
	TransformFile string  `json:"transform_file"`
	Storage       Storage `json:"storage"`
}

// Storage selects an optional database sink.
type Storage struct {
	// Kind is one of postgres, mssql, mysql, sqlite, duckdb; empty disables.
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	DSN               string `json:"dsn"`
	TransactionsTable string `json:"transactions_table"`
	CreditCardTable   string `json:"credit_card_table"`
	AutoCreateTable   bool   `json:"auto_create_table"`
	BatchSize         int    `json:"batch_size"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is pushgateway, datadog or none.
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// ApplyDefaults fills unset fields with the conventions of the published
// fraud datasets.
func (p *Pipeline) ApplyDefaults() {
	if p.Job == "" {
		p.Job = "fraud_prep"
	}
	if p.Parser.Kind == "" {
		p.Parser.Kind = "csv"
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	c := &p.Columns
	setDefault(&c.IPAddress, "ip_address")
	setDefault(&c.SignupTime, "signup_time")
	setDefault(&c.PurchaseTime, "purchase_time")
	setDefault(&c.LowerBound, "lower_bound_ip_address")
	setDefault(&c.UpperBound, "upper_bound_ip_address")
	setDefault(&c.Country, "country")
	if c.Numeric == nil {
		c.Numeric = []string{"purchase_value", "age"}
	}
	if c.CreditNumber == nil {
		c.CreditNumber = []string{"Amount"}
	}
	setDefault(&p.Normalize.Location, "UTC")
	setDefault(&p.Resolver.Unmatched, UnmatchedDrop)
	setDefault(&p.Resolver.Sentinel, DefaultSentinel)
	if p.Clean.Fill == nil {
		p.Clean.Fill = map[string]string{c.Country: DefaultSentinel}
	}
	setDefault(&p.Features.Location, p.Normalize.Location)
	if p.Transform.Categorical == nil {
		p.Transform.Categorical = []string{"source", "browser", "sex"}
	}
	if p.Transform.Scale == nil {
		p.Transform.Scale = []string{"purchase_value", "time_since_signup", "age"}
	}
	if p.Transform.CreditCardScale == nil {
		p.Transform.CreditCardScale = []string{"Amount"}
	}
	setDefault(&p.Transform.HandleUnknown, HandleUnknownError)
	setDefault(&p.Output.Storage.DB.TransactionsTable, "fraud_features")
	setDefault(&p.Output.Storage.DB.CreditCardTable, "creditcard_features")
	if p.Output.Storage.DB.BatchSize <= 0 {
		p.Output.Storage.DB.BatchSize = 5000
	}
	setDefault(&p.Metrics.Backend, "none")
}

func setDefault(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string-valued entries of an object value for key.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// UnmarshalJSON decodes a missing or null options object to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
