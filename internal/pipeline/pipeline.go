// Package pipeline orchestrates a full run: load each source, flatten and
// type it, merge everything into one table, then derive insights. Sources
// load concurrently; a failed source is reported and skipped rather than
// aborting the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"datafuse/internal/config"
	"datafuse/internal/diag"
	"datafuse/internal/flatten"
	"datafuse/internal/infer"
	"datafuse/internal/insight"
	"datafuse/internal/loader"
	"datafuse/internal/merge"
	"datafuse/internal/metrics"
	"datafuse/internal/table"
)

var (
	// ErrSourceUnreadable wraps a loader failure for one source.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrNoKeyFound means no column pair cleared the key score threshold.
	ErrNoKeyFound = errors.New("no join key found")
	// ErrMergeAborted means no source survived loading, so there is nothing
	// to merge.
	ErrMergeAborted = errors.New("merge aborted")
)

// SourceFailure records one source that dropped out of the run.
type SourceFailure struct {
	Name string
	Err  error
}

// Result is everything a run produces.
type Result struct {
	Merged   table.MergedTable
	Insights insight.Bundle
	// Cleaned holds the per-source typed tables that entered the merge, in
	// configuration order.
	Cleaned []table.CleanedTable
	Failed  []SourceFailure
	Diag    *diag.Log
}

// Run executes the configured pipeline. It returns an error only when the
// run as a whole cannot proceed; per-source problems land in Result.Failed
// and the diagnostic log.
func Run(ctx context.Context, run config.Run) (Result, error) {
	dl := diag.New()
	res := Result{Diag: dl}

	type loaded struct {
		cleaned table.CleanedTable
		err     error
	}
	slots := make([]loaded, len(run.Sources))

	var wg sync.WaitGroup
	for i, src := range run.Sources {
		wg.Add(1)
		go func(i int, src config.Source) {
			defer wg.Done()
			ct, err := loadSource(ctx, src, dl)
			slots[i] = loaded{cleaned: ct, err: err}
		}(i, src)
	}
	wg.Wait()

	for i, src := range run.Sources {
		name := src.EffectiveName()
		if err := slots[i].err; err != nil {
			res.Failed = append(res.Failed, SourceFailure{Name: name, Err: err})
			dl.Addf("load", name, "skipped: %v", err)
			metrics.IncCounter("sources_failed_total", 1, "source:"+name)
			continue
		}
		res.Cleaned = append(res.Cleaned, slots[i].cleaned)
		metrics.IncCounter("sources_loaded_total", 1, "source:"+name)
		metrics.SetGauge("source_rows", float64(len(slots[i].cleaned.Rows)), "source:"+name)
	}

	if len(res.Cleaned) == 0 {
		return res, fmt.Errorf("%w: no sources loaded", ErrMergeAborted)
	}

	merged, err := merge.Tables(res.Cleaned, run.Keys, dl)
	if err != nil {
		return res, err
	}
	res.Merged = merged
	for _, name := range merged.Prov.Excluded {
		res.Failed = append(res.Failed, SourceFailure{Name: name, Err: ErrNoKeyFound})
		metrics.IncCounter("sources_excluded_total", 1, "source:"+name)
	}
	metrics.SetGauge("merged_rows", float64(len(merged.Rows)))
	metrics.SetGauge("merged_columns", float64(len(merged.Columns)))

	res.Insights = insight.Compute(merged, insight.Options{
		TopN:          run.Insights.TopN,
		MaxCategories: run.Insights.MaxCategories,
	})
	metrics.SetGauge("insights_computed", float64(len(res.Insights.Values)))
	for name, reason := range res.Insights.Skipped {
		dl.Addf("insight", "merged", "%s skipped: %s", name, reason)
	}

	return res, nil
}

// loadSource runs the per-source stages: load, flatten, clean.
func loadSource(ctx context.Context, src config.Source, dl *diag.Log) (table.CleanedTable, error) {
	kind := src.Kind
	if kind == "" {
		kind = loader.DetectKind(src.Path)
	}
	l, err := loader.For(kind)
	if err != nil {
		return table.CleanedTable{}, err
	}

	rt, err := l.Load(ctx, src)
	if err != nil {
		return table.CleanedTable{}, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	rt.Name = src.EffectiveName()
	dl.Addf("load", rt.Name, "loaded %d rows, %d columns (kind %s)", len(rt.Rows), len(rt.Columns), kind)

	flat := flatten.Table(rt)
	if len(flat.Columns) != len(rt.Columns) || len(flat.Rows) != len(rt.Rows) {
		dl.Addf("flatten", rt.Name, "reshaped to %d rows, %d columns", len(flat.Rows), len(flat.Columns))
	}

	ct := infer.Clean(flat, infer.Hints{
		DateColumns:    src.DateColumns,
		NumericColumns: src.NumericColumns,
	}, dl)
	return ct, nil
}
