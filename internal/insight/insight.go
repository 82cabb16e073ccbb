// Package insight derives descriptive statistics from a merged table.
//
// Compute is a pure function of its input: each insight either lands in the
// bundle or is skipped with a recorded reason (missing prerequisite columns,
// empty input). A failing insight never aborts the others.
package insight

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"datafuse/internal/table"
)

// Options tunes bundle computation. Zero values select the defaults.
type Options struct {
	// TopN bounds each categorical breakdown (default 10).
	TopN int
	// MaxCategories skips breakdowns for columns with this many or more
	// distinct values (default 20); high-cardinality columns make useless
	// frequency charts.
	MaxCategories int
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 10
	}
	if o.MaxCategories <= 0 {
		o.MaxCategories = 20
	}
	return o
}

// strongCorrelation is the |r| floor for the strong_correlations insight.
const strongCorrelation = 0.7

// financialKeywords mark numeric columns as currency-like by name.
var financialKeywords = []string{
	"revenue", "sales", "amount", "price", "cost", "total", "units", "quantity",
}

// ColumnStats summarizes one financial column over its non-missing values.
type ColumnStats struct {
	Count  int
	Sum    float64
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// LabelCount is one categorical frequency entry.
type LabelCount struct {
	Label string
	Count int
}

// DailyPoint is one day of a time-series rollup.
type DailyPoint struct {
	Day  time.Time
	Sum  float64
	Mean float64
}

// Matrix is a symmetric correlation matrix; Values[i][j] is the Pearson
// correlation between Columns[i] and Columns[j].
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// CorrPair is one strongly correlated column pair.
type CorrPair struct {
	Left  string
	Right string
	R     float64
}

// ColumnSummary describes one column's kind and completeness.
type ColumnSummary struct {
	Name         string
	Kind         string
	MissingRatio float64
}

// Bundle maps insight names to computed values. Skipped records why an
// insight was omitted. Immutable once returned.
type Bundle struct {
	Values  map[string]any
	Skipped map[string]string
}

// Compute builds the full bundle from mt.
func Compute(mt table.MergedTable, opt Options) Bundle {
	opt = opt.withDefaults()
	b := Bundle{
		Values:  make(map[string]any),
		Skipped: make(map[string]string),
	}

	compute := func(name string, f func() (any, error)) {
		defer func() {
			if r := recover(); r != nil {
				b.Skipped[name] = fmt.Sprintf("internal error: %v", r)
			}
		}()
		v, err := f()
		if err != nil {
			b.Skipped[name] = err.Error()
			return
		}
		b.Values[name] = v
	}

	b.Values["record_count"] = len(mt.Rows)
	b.Values["column_summary"] = columnSummary(mt)

	compute("financial_summary", func() (any, error) { return financialSummary(mt) })
	compute("categorical_breakdown", func() (any, error) { return categoricalBreakdown(mt, opt) })
	compute("daily_trend", func() (any, error) { return dailyTrend(mt) })

	var matrix Matrix
	compute("correlation_matrix", func() (any, error) {
		m, err := correlationMatrix(mt)
		matrix = m
		return m, err
	})
	compute("strong_correlations", func() (any, error) { return strongPairs(matrix) })

	return b
}

func columnSummary(mt table.MergedTable) []ColumnSummary {
	out := make([]ColumnSummary, len(mt.Columns))
	for i, c := range mt.Columns {
		missing := 0
		for _, row := range mt.Rows {
			if i >= len(row) || row[i] == nil {
				missing++
			}
		}
		ratio := 0.0
		if len(mt.Rows) > 0 {
			ratio = float64(missing) / float64(len(mt.Rows))
		}
		out[i] = ColumnSummary{Name: c, Kind: mt.Kinds[i].String(), MissingRatio: ratio}
	}
	return out
}

func isFinancial(name string) bool {
	n := strings.ToLower(name)
	for _, kw := range financialKeywords {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

func financialSummary(mt table.MergedTable) (map[string]ColumnStats, error) {
	out := make(map[string]ColumnStats)
	for _, i := range mt.ColumnsOfKind(table.KindNumeric) {
		if !isFinancial(mt.Columns[i]) {
			continue
		}
		vals := numericValues(mt, i)
		if len(vals) == 0 {
			continue
		}
		out[mt.Columns[i]] = stats(vals)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no numeric columns with financial names")
	}
	return out, nil
}

func stats(vals []float64) ColumnStats {
	s := ColumnStats{Count: len(vals), Min: vals[0], Max: vals[0]}
	for _, v := range vals {
		s.Sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = s.Sum / float64(len(vals))

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		s.Median = sorted[mid]
	} else {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return s
}

func categoricalBreakdown(mt table.MergedTable, opt Options) (map[string][]LabelCount, error) {
	out := make(map[string][]LabelCount)
	for _, i := range mt.ColumnsOfKind(table.KindCategorical) {
		counts := make(map[string]int)
		for _, row := range mt.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			if s, ok := row[i].(string); ok {
				counts[s]++
			}
		}
		if len(counts) == 0 || len(counts) >= opt.MaxCategories {
			continue
		}
		lcs := make([]LabelCount, 0, len(counts))
		for l, n := range counts {
			lcs = append(lcs, LabelCount{Label: l, Count: n})
		}
		sort.Slice(lcs, func(a, b int) bool {
			if lcs[a].Count != lcs[b].Count {
				return lcs[a].Count > lcs[b].Count
			}
			return lcs[a].Label < lcs[b].Label
		})
		if len(lcs) > opt.TopN {
			lcs = lcs[:opt.TopN]
		}
		out[mt.Columns[i]] = lcs
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no categorical columns below the cardinality bound")
	}
	return out, nil
}

func dailyTrend(mt table.MergedTable) (map[string][]DailyPoint, error) {
	dateCols := mt.ColumnsOfKind(table.KindDate)
	if len(dateCols) == 0 {
		return nil, fmt.Errorf("no date column")
	}
	numCols := mt.ColumnsOfKind(table.KindNumeric)
	if len(numCols) == 0 {
		return nil, fmt.Errorf("no numeric column")
	}
	di := dateCols[0]

	out := make(map[string][]DailyPoint)
	for _, ni := range numCols {
		type acc struct {
			sum float64
			n   int
		}
		days := make(map[time.Time]*acc)
		for _, row := range mt.Rows {
			if di >= len(row) || ni >= len(row) {
				continue
			}
			d, okD := row[di].(time.Time)
			v, okV := row[ni].(float64)
			if !okD || !okV {
				continue
			}
			day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
			a := days[day]
			if a == nil {
				a = &acc{}
				days[day] = a
			}
			a.sum += v
			a.n++
		}
		if len(days) == 0 {
			continue
		}
		points := make([]DailyPoint, 0, len(days))
		for day, a := range days {
			points = append(points, DailyPoint{Day: day, Sum: a.sum, Mean: a.sum / float64(a.n)})
		}
		sort.Slice(points, func(a, b int) bool { return points[a].Day.Before(points[b].Day) })
		out[mt.Columns[ni]] = points
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no rows with both a date and a numeric value")
	}
	return out, nil
}

func correlationMatrix(mt table.MergedTable) (Matrix, error) {
	numCols := mt.ColumnsOfKind(table.KindNumeric)
	if len(numCols) < 2 {
		return Matrix{}, fmt.Errorf("need >= 2 numeric columns, have %d", len(numCols))
	}

	m := Matrix{Columns: make([]string, len(numCols))}
	for i, ci := range numCols {
		m.Columns[i] = mt.Columns[ci]
	}
	m.Values = make([][]float64, len(numCols))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(numCols))
		m.Values[i][i] = 1.0
	}

	for i := 0; i < len(numCols); i++ {
		for j := i + 1; j < len(numCols); j++ {
			r := pearson(mt, numCols[i], numCols[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

// pearson computes the correlation over pairwise-complete rows (both cells
// present). Degenerate columns (zero variance) yield 0, not NaN.
func pearson(mt table.MergedTable, ci, cj int) float64 {
	var xs, ys []float64
	for _, row := range mt.Rows {
		if ci >= len(row) || cj >= len(row) {
			continue
		}
		x, okX := row[ci].(float64)
		y, okY := row[cj].(float64)
		if !okX || !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	n := float64(len(xs))
	if n < 2 {
		return 0
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	r := cov / math.Sqrt(varX*varY)
	// Clamp float drift so the matrix stays within [-1, 1].
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}

func strongPairs(m Matrix) ([]CorrPair, error) {
	if len(m.Columns) == 0 {
		return nil, fmt.Errorf("correlation matrix unavailable")
	}
	var out []CorrPair
	for i := 0; i < len(m.Columns); i++ {
		for j := i + 1; j < len(m.Columns); j++ {
			if math.Abs(m.Values[i][j]) > strongCorrelation {
				out = append(out, CorrPair{Left: m.Columns[i], Right: m.Columns[j], R: m.Values[i][j]})
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no pairs with |r| > %.1f", strongCorrelation)
	}
	return out, nil
}

func numericValues(mt table.MergedTable, col int) []float64 {
	var out []float64
	for _, row := range mt.Rows {
		if col >= len(row) {
			continue
		}
		if f, ok := row[col].(float64); ok {
			out = append(out, f)
		}
	}
	return out
}
