// Package infer classifies columns as numeric, date, or categorical and
// coerces cell values accordingly.
//
// Classification samples a bounded prefix of rows and tests conversion to
// date first, then numeric; the first kind whose success ratio clears
// Threshold wins, otherwise the column is categorical. Real-world data is
// inconsistent, so coercion never aborts: cells that fail the chosen kind
// become the missing marker and are counted in the column profile.
package infer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"datafuse/internal/diag"
	"datafuse/internal/table"
)

const (
	// SampleRows bounds the classification sample per column.
	SampleRows = 200
	// Threshold is the minimum conversion success ratio for a column to be
	// classified as date or numeric. Test expectations depend on this value.
	Threshold = 0.6
)

// numericScrub strips the documented set of formatting noise before a
// numeric parse: currency symbols, thousands separators, underscores, and
// plain or non-breaking spaces.
var numericScrub = strings.NewReplacer(
	"$", "", "€", "", "£", "", ",", "", "_", "", " ", "", " ", "",
)

// dateLayouts are tried in order; first match wins.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Hints force the kind of the named columns, overriding inference. Coercion
// failures are still recorded in the profile.
type Hints struct {
	DateColumns    []string
	NumericColumns []string
}

func (h Hints) forced(col string) (table.ColumnKind, bool) {
	for _, c := range h.DateColumns {
		if c == col {
			return table.KindDate, true
		}
	}
	for _, c := range h.NumericColumns {
		if c == col {
			return table.KindNumeric, true
		}
	}
	return table.KindUnresolved, false
}

// Clean classifies and coerces every column of a flattened RawTable. The
// input must already be flat (no nested cells) with unique column names.
func Clean(rt table.RawTable, hints Hints, dl *diag.Log) table.CleanedTable {
	ct := table.CleanedTable{
		Name:     rt.Name,
		Columns:  append([]string(nil), rt.Columns...),
		Kinds:    make([]table.ColumnKind, len(rt.Columns)),
		Profiles: make([]table.ColumnProfile, len(rt.Columns)),
		Rows:     make([][]any, len(rt.Rows)),
	}
	for i := range rt.Rows {
		ct.Rows[i] = make([]any, len(rt.Columns))
	}

	for col := range rt.Columns {
		kind, ok := hints.forced(rt.Columns[col])
		if !ok {
			kind = classify(rt.Rows, col)
		}
		ct.Kinds[col] = kind

		prof := table.ColumnProfile{Kind: kind}
		for i, row := range rt.Rows {
			if col >= len(row) {
				continue
			}
			v := row[col]
			if isEmpty(v) {
				continue
			}
			switch kind {
			case table.KindNumeric:
				if f, ok := parseNumeric(v); ok {
					ct.Rows[i][col] = f
					prof.Converted++
				} else {
					prof.RecordFailure(rawString(v))
				}
			case table.KindDate:
				if t, ok := parseDate(v); ok {
					ct.Rows[i][col] = t
					prof.Converted++
				} else {
					prof.RecordFailure(rawString(v))
				}
			default:
				ct.Rows[i][col] = rawString(v)
				prof.Converted++
			}
		}
		ct.Profiles[col] = prof
		dl.Conversion(rt.Name, rt.Columns[col], kind.String(), prof.Converted, prof.Failed, prof.SampleFailures)
	}
	return ct
}

// classify samples a bounded prefix of the column and picks the first kind
// whose success ratio clears Threshold, testing date before numeric.
func classify(rows [][]any, col int) table.ColumnKind {
	n := len(rows)
	if n > SampleRows {
		n = SampleRows
	}

	var seen, dates, nums int
	for _, row := range rows[:n] {
		if col >= len(row) || isEmpty(row[col]) {
			continue
		}
		seen++
		if _, ok := parseDate(row[col]); ok {
			dates++
		}
		if _, ok := parseNumeric(row[col]); ok {
			nums++
		}
	}
	if seen == 0 {
		return table.KindUnresolved
	}
	if float64(dates)/float64(seen) >= Threshold {
		return table.KindDate
	}
	if float64(nums)/float64(seen) >= Threshold {
		return table.KindNumeric
	}
	return table.KindCategorical
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func parseNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := numericScrub.Replace(strings.TrimSpace(t))
		if s == "" {
			return 0, false
		}
		// Accountant negatives: (123.45) means -123.45.
		neg := false
		if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
			neg = true
			s = s[1 : len(s)-1]
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		if neg {
			f = -f
		}
		return f, true
	default:
		return 0, false
	}
}

func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, lay := range dateLayouts {
			if ts, err := time.Parse(lay, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func rawString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
