package report

import (
	"strings"
	"testing"
	"time"

	"datafuse/internal/insight"
	"datafuse/internal/table"
)

func TestWriteFullReport(t *testing.T) {
	t.Parallel()

	mt := table.MergedTable{
		Columns: []string{"date", "revenue", "units", "region"},
		Kinds: []table.ColumnKind{
			table.KindDate, table.KindNumeric, table.KindNumeric, table.KindCategorical,
		},
		Rows: [][]any{
			{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100.0, 10.0, "north"},
			{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 200.0, 20.0, "south"},
			{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 300.0, 30.0, "north"},
		},
		Prov: table.Provenance{
			Unmatched: map[string]int{"orders": 1},
			Excluded:  []string{"legacy"},
		},
	}
	b := insight.Compute(mt, insight.Options{})

	var sb strings.Builder
	if err := Write(&sb, mt, b); err != nil {
		t.Fatalf("Write() err=%v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"DATA OVERVIEW",
		"FINANCIAL SUMMARY",
		"CATEGORICAL ANALYSIS",
		"TIME SERIES",
		"CORRELATIONS",
		"Rows: 3",
		"revenue",
		"north",
		"2024-01-01",
		"orders",
		"Excluded sources: legacy",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "sum=600.00") {
		t.Fatalf("financial sum missing:\n%s", out)
	}
}

func TestWriteSkipReasons(t *testing.T) {
	t.Parallel()

	mt := table.MergedTable{
		Columns: []string{"x"},
		Kinds:   []table.ColumnKind{table.KindCategorical},
		Rows:    [][]any{{"a"}},
	}
	b := insight.Compute(mt, insight.Options{})

	var sb strings.Builder
	if err := Write(&sb, mt, b); err != nil {
		t.Fatalf("Write() err=%v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "(skipped:") {
		t.Fatalf("skip reasons absent:\n%s", out)
	}
}
