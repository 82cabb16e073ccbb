// Package config defines the run configuration for a pipeline execution and
// the loosely-typed Options map used by loaders.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source describes one input dataset.
type Source struct {
	// Name identifies the table in merge provenance, collision suffixes and
	// diagnostics. Defaults to the file base name when empty.
	Name string `json:"name"`
	// Path is a local file path.
	Path string `json:"path"`
	// Kind is "csv", "json", "xlsx" or "html". When empty it is detected
	// from the path extension.
	Kind string `json:"kind,omitempty"`
	// Options carries loader-specific settings (e.g. "comma", "has_header").
	Options Options `json:"options,omitempty"`

	// DateColumns and NumericColumns are column-role hints that override
	// type inference for the named columns.
	DateColumns    []string `json:"date_columns,omitempty"`
	NumericColumns []string `json:"numeric_columns,omitempty"`
}

// ExportTarget describes one sink for the merged dataset.
type ExportTarget struct {
	// Kind selects the exporter backend: "csv", "sqlite", "postgres", "mssql".
	Kind string `json:"kind"`
	// Path is the output file for file-based exporters.
	Path string `json:"path,omitempty"`
	// DSN is the connection string for database exporters.
	DSN string `json:"dsn,omitempty"`
	// Table is the destination table name for database exporters.
	Table string `json:"table,omitempty"`
}

// InsightOptions tunes the insight engine.
type InsightOptions struct {
	// TopN bounds each categorical breakdown. Default 10.
	TopN int `json:"top_n,omitempty"`
	// MaxCategories skips breakdowns for columns with this many or more
	// distinct values. Default 20.
	MaxCategories int `json:"max_categories,omitempty"`
}

// Run is the top-level pipeline configuration.
type Run struct {
	Job     string   `json:"job"`
	Sources []Source `json:"sources"`

	// Keys maps a source name to the column to join on, bypassing automatic
	// key resolution for that table.
	Keys map[string]string `json:"keys,omitempty"`

	Insights InsightOptions `json:"insights,omitempty"`

	Export []ExportTarget `json:"export,omitempty"`
	// Report is the path for the text insight report; empty disables it.
	Report string `json:"report,omitempty"`
}

// Load reads and decodes a Run config from a JSON file.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a Run config from JSON.
func Decode(r io.Reader) (Run, error) {
	var run Run
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&run); err != nil {
		return Run{}, fmt.Errorf("decode config: %w", err)
	}
	return run, nil
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

var knownSourceKinds = map[string]struct{}{
	"": {}, "csv": {}, "json": {}, "xlsx": {}, "html": {},
}

var knownExportKinds = map[string]struct{}{
	"csv": {}, "sqlite": {}, "postgres": {}, "mssql": {},
}

// Validate checks a Run config and returns all findings. An empty result
// means the config is usable; warnings do not block a run.
func Validate(run Run) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, a ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if len(run.Sources) == 0 {
		add(SeverityError, "sources", "at least one source is required")
	}

	names := make(map[string]int)
	for i, s := range run.Sources {
		path := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(s.Path) == "" {
			add(SeverityError, path+".path", "path is required")
		}
		if _, ok := knownSourceKinds[s.Kind]; !ok {
			add(SeverityError, path+".kind", "unknown source kind %q", s.Kind)
		}
		name := s.EffectiveName()
		names[name]++
		if names[name] == 2 {
			add(SeverityError, path+".name", "duplicate source name %q", name)
		}
	}

	for name := range run.Keys {
		if _, ok := names[name]; !ok {
			add(SeverityWarning, "keys", "key override for unknown source %q", name)
		}
	}

	for i, e := range run.Export {
		path := fmt.Sprintf("export[%d]", i)
		if _, ok := knownExportKinds[e.Kind]; !ok {
			add(SeverityError, path+".kind", "unknown export kind %q", e.Kind)
			continue
		}
		switch e.Kind {
		case "csv":
			if e.Path == "" {
				add(SeverityError, path+".path", "csv export requires a path")
			}
		default:
			if e.DSN == "" {
				add(SeverityError, path+".dsn", "%s export requires a dsn", e.Kind)
			}
			if e.Table == "" {
				add(SeverityWarning, path+".table", "no table name; defaulting to job name")
			}
		}
	}

	if run.Insights.TopN < 0 {
		add(SeverityError, "insights.top_n", "must be >= 0")
	}
	if run.Insights.MaxCategories < 0 {
		add(SeverityError, "insights.max_categories", "must be >= 0")
	}

	return out
}

// EffectiveName returns Name, falling back to the file base name without
// extension.
func (s Source) EffectiveName() string {
	if s.Name != "" {
		return s.Name
	}
	base := s.Path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
