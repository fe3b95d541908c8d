package config

import (
	"fmt"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "resolver.unmatched", "transform.scale[1]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline that has already
// had defaults applied. It does not touch the filesystem and does not mutate
// p.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics for the run")
	}

	if strings.TrimSpace(p.Inputs.Transactions.Path) == "" {
		add(SeverityError, "inputs.transactions.path", "transactions input is required")
	}
	if strings.TrimSpace(p.Inputs.IPRanges.Path) == "" && strings.TrimSpace(p.Resolver.MMDB) == "" {
		add(SeverityError, "inputs.ip_ranges.path", "either an ip_ranges input or resolver.mmdb is required")
	}

	if p.Parser.Kind != "csv" {
		add(SeverityWarning, "parser.kind", "unknown parser kind %q; only csv is implemented", p.Parser.Kind)
	}
	if s := p.Parser.Options.String("comma", ","); len([]rune(s)) != 1 {
		add(SeverityError, "parser.options.comma", "comma must be a single character, got %q", s)
	}

	for _, loc := range []struct{ path, name string }{
		{"normalize.location", p.Normalize.Location},
		{"features.location", p.Features.Location},
	} {
		if _, err := time.LoadLocation(loc.name); err != nil {
			add(SeverityError, loc.path, "unknown time zone %q: %v", loc.name, err)
		}
	}

	switch p.Resolver.Unmatched {
	case UnmatchedDrop, UnmatchedFill:
	default:
		add(SeverityError, "resolver.unmatched", "unknown unmatched policy %q; want %q or %q", p.Resolver.Unmatched, UnmatchedDrop, UnmatchedFill)
	}
	if p.Resolver.Unmatched == UnmatchedFill && p.Resolver.Sentinel == "" {
		add(SeverityError, "resolver.sentinel", "fill policy needs a non-empty sentinel")
	}
	if p.Resolver.MMDB != "" && p.Resolver.AttachBounds {
		add(SeverityWarning, "resolver.attach_bounds", "range bounds are not available from an mmdb; attach_bounds is ignored")
	}

	issues = append(issues, validateColumns("transform.categorical", p.Transform.Categorical)...)
	issues = append(issues, validateColumns("transform.scale", p.Transform.Scale)...)
	issues = append(issues, validateColumns("transform.credit_card_scale", p.Transform.CreditCardScale)...)
	if len(p.Transform.Categorical) == 0 && len(p.Transform.Scale) == 0 {
		add(SeverityWarning, "transform", "no categorical or scale columns; transactions pass through unencoded")
	}
	for _, c := range p.Transform.Categorical {
		for _, s := range p.Transform.Scale {
			if c == s {
				add(SeverityError, "transform", "column %q is both categorical and scaled", c)
			}
		}
	}
	switch p.Transform.HandleUnknown {
	case HandleUnknownError, HandleUnknownIgnore:
	default:
		add(SeverityError, "transform.handle_unknown", "unknown value %q; want %q or %q", p.Transform.HandleUnknown, HandleUnknownError, HandleUnknownIgnore)
	}

	issues = append(issues, validateStorage(p.Output.Storage)...)

	switch p.Metrics.Backend {
	case "", "none", "pushgateway", "datadog":
	default:
		add(SeverityWarning, "metrics.backend", "unknown metrics backend %q; metrics will be disabled", p.Metrics.Backend)
	}

	if p.Output.Dir == "" && p.Output.Storage.Kind == "" {
		add(SeverityWarning, "output", "no output dir or storage configured; results are computed and discarded")
	}
	return issues
}

func validateColumns(path string, cols []string) []Issue {
	var issues []Issue
	seen := map[string]struct{}{}
	for i, c := range cols {
		p := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p, Message: "column name must not be empty"})
			continue
		}
		if _, dup := seen[c]; dup {
			issues = append(issues, Issue{Severity: SeverityError, Path: p, Message: fmt.Sprintf("column %q listed twice", c)})
		}
		seen[c] = struct{}{}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		return nil
	}
	known := map[string]struct{}{
		"postgres": {},
		"mssql":    {},
		"mysql":    {},
		"sqlite":   {},
		"duckdb":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.storage.db.dsn",
			Message:  "storage requires a non-empty DSN",
		})
	}
	if s.DB.TransactionsTable == s.DB.CreditCardTable {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.storage.db",
			Message:  "transactions and credit card tables must differ",
		})
	}
	return issues
}
