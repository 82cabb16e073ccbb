// Package table defines the tabular representations passed between pipeline
// stages: RawTable (loader output), CleanedTable (after flattening and type
// coercion), and MergedTable (after the join).
//
// Cell convention:
//   - nil is the missing marker
//   - cleaned numeric cells are float64
//   - cleaned date cells are time.Time
//   - categorical cells are string
//   - raw cells may additionally hold map[string]any / []any nested values
//     (JSON sources only; the flattener removes them before inference)
//
// Each stage produces a new value and must not mutate its input.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ColumnKind is the inferred semantic type of a column.
type ColumnKind int

const (
	KindUnresolved ColumnKind = iota
	KindNumeric
	KindDate
	KindCategorical
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDate:
		return "date"
	case KindCategorical:
		return "categorical"
	default:
		return "unresolved"
	}
}

// RawTable is the loader output: positional rows aligned to Columns.
// Column names may repeat before flattening. Immutable once returned.
type RawTable struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// MaxSampleFailures bounds the failing-value samples kept per column profile.
const MaxSampleFailures = 5

// ColumnProfile records how a column's coercion went. Every column of a
// CleanedTable has exactly one profile.
type ColumnProfile struct {
	Kind           ColumnKind
	Converted      int
	Failed         int
	SampleFailures []string
}

// SuccessRatio reports the fraction of non-empty cells that coerced to the
// chosen kind. A column with no values at all reports 0.
func (p ColumnProfile) SuccessRatio() float64 {
	total := p.Converted + p.Failed
	if total == 0 {
		return 0
	}
	return float64(p.Converted) / float64(total)
}

// RecordFailure counts a failed coercion and keeps a bounded sample of the
// offending raw value for diagnostics.
func (p *ColumnProfile) RecordFailure(raw string) {
	p.Failed++
	if len(p.SampleFailures) < MaxSampleFailures {
		p.SampleFailures = append(p.SampleFailures, raw)
	}
}

// CleanedTable is a RawTable after flattening and type coercion.
//
// Invariants:
//   - no two columns share a name
//   - len(Kinds) == len(Profiles) == len(Columns)
//   - numeric/date cells are typed or nil, never raw strings
type CleanedTable struct {
	Name     string
	Columns  []string
	Kinds    []ColumnKind
	Profiles []ColumnProfile
	Rows     [][]any
}

// ColumnIndex returns the position of the named column, or -1.
func (t CleanedTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CheckUnique verifies the unique-column-name invariant.
func (t CleanedTable) CheckUnique() error {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("table %s: duplicate column %q", t.Name, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Provenance records which sources contributed to a merged table and how many
// rows per source found no join partner.
type Provenance struct {
	// RowSources holds, per merged row, the names of the tables that
	// contributed values to it.
	RowSources [][]string
	// Unmatched counts rows per source table that had no join partner.
	Unmatched map[string]int
	// Excluded lists tables left out of the merge entirely (no key cleared
	// the threshold, or the source failed to load).
	Excluded []string
}

// MergedTable is the join result handed to the insight engine and sinks.
type MergedTable struct {
	Columns []string
	Kinds   []ColumnKind
	Rows    [][]any
	Prov    Provenance
}

// ColumnIndex returns the position of the named column, or -1.
func (t MergedTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnsOfKind returns the indexes of all columns with the given kind.
func (t MergedTable) ColumnsOfKind(k ColumnKind) []int {
	var out []int
	for i, kk := range t.Kinds {
		if kk == k {
			out = append(out, i)
		}
	}
	return out
}

// KeyString canonicalizes a cell value for join-key comparison so that the
// same logical key matches across sources regardless of loader value types
// (e.g. "42" in CSV vs 42.0 in JSON).
func KeyString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	case time.Time:
		return t.Format("2006-01-02"), true
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		return s, s != ""
	}
}
