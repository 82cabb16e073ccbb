// Package report renders an insight bundle as a plain-text report.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"datafuse/internal/insight"
	"datafuse/internal/table"
)

const rule = "============================================================"

// Write renders the bundle to w. Sections for skipped insights are replaced
// by a one-line reason so the report always says why something is absent.
func Write(w io.Writer, mt table.MergedTable, b insight.Bundle) error {
	p := &printer{w: w}

	p.section("DATA OVERVIEW")
	p.linef("Rows: %d", b.Values["record_count"])
	p.linef("Columns: %d", len(mt.Columns))
	if cs, ok := b.Values["column_summary"].([]insight.ColumnSummary); ok {
		for _, c := range cs {
			p.linef("  %-30s %-12s missing %5.1f%%", c.Name, c.Kind, c.MissingRatio*100)
		}
	}
	writeProvenance(p, mt.Prov)

	p.section("FINANCIAL SUMMARY")
	if fs, ok := b.Values["financial_summary"].(map[string]insight.ColumnStats); ok {
		for _, name := range sortedKeys(fs) {
			s := fs[name]
			p.linef("%s:", name)
			p.linef("  count=%d sum=%.2f mean=%.2f median=%.2f min=%.2f max=%.2f",
				s.Count, s.Sum, s.Mean, s.Median, s.Min, s.Max)
		}
	} else {
		p.skipped(b, "financial_summary")
	}

	p.section("CATEGORICAL ANALYSIS")
	if cb, ok := b.Values["categorical_breakdown"].(map[string][]insight.LabelCount); ok {
		for _, name := range sortedKeys(cb) {
			p.linef("%s:", name)
			for _, lc := range cb[name] {
				p.linef("  %-30s %d", lc.Label, lc.Count)
			}
		}
	} else {
		p.skipped(b, "categorical_breakdown")
	}

	p.section("TIME SERIES")
	if dt, ok := b.Values["daily_trend"].(map[string][]insight.DailyPoint); ok {
		for _, name := range sortedKeys(dt) {
			points := dt[name]
			p.linef("%s: %d days, %s .. %s", name, len(points),
				points[0].Day.Format("2006-01-02"),
				points[len(points)-1].Day.Format("2006-01-02"))
			for _, pt := range points {
				p.linef("  %s sum=%.2f mean=%.2f", pt.Day.Format("2006-01-02"), pt.Sum, pt.Mean)
			}
		}
	} else {
		p.skipped(b, "daily_trend")
	}

	p.section("CORRELATIONS")
	if m, ok := b.Values["correlation_matrix"].(insight.Matrix); ok {
		writeMatrix(p, m)
	} else {
		p.skipped(b, "correlation_matrix")
	}
	if pairs, ok := b.Values["strong_correlations"].([]insight.CorrPair); ok {
		p.linef("Strong pairs:")
		for _, pr := range pairs {
			p.linef("  %s ~ %s  r=%.3f", pr.Left, pr.Right, pr.R)
		}
	} else {
		p.skipped(b, "strong_correlations")
	}

	return p.err
}

func writeProvenance(p *printer, prov table.Provenance) {
	if len(prov.Unmatched) > 0 {
		p.linef("Unmatched rows by source:")
		for _, name := range sortedKeys(prov.Unmatched) {
			p.linef("  %-30s %d", name, prov.Unmatched[name])
		}
	}
	if len(prov.Excluded) > 0 {
		p.linef("Excluded sources: %s", strings.Join(prov.Excluded, ", "))
	}
}

func writeMatrix(p *printer, m insight.Matrix) {
	var head strings.Builder
	head.WriteString(fmt.Sprintf("%-20s", ""))
	for _, c := range m.Columns {
		head.WriteString(fmt.Sprintf(" %12s", trunc(c, 12)))
	}
	p.linef("%s", head.String())
	for i, c := range m.Columns {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%-20s", trunc(c, 20)))
		for j := range m.Columns {
			row.WriteString(fmt.Sprintf(" %12.3f", m.Values[i][j]))
		}
		p.linef("%s", row.String())
	}
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) linef(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.linef("")
	p.linef(rule)
	p.linef("%s", title)
	p.linef(rule)
}

func (p *printer) skipped(b insight.Bundle, name string) {
	if reason, ok := b.Skipped[name]; ok {
		p.linef("(skipped: %s)", reason)
	} else {
		p.linef("(not computed)")
	}
}
