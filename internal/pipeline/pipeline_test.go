package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"datafuse/internal/config"

	_ "datafuse/internal/loader/all"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	orders := writeFile(t, dir, "orders.csv",
		"product_id,revenue,date\nP1,100.50,2024-01-01\nP2,200.00,2024-01-02\nP3,300.25,2024-01-03\n")
	products := writeFile(t, dir, "products.json",
		`[{"product_id": "P1", "category": "tools"},
		  {"product_id": "P2", "category": "tools"},
		  {"product_id": "P3", "category": "garden"}]`)

	run := config.Run{
		Job: "sales",
		Sources: []config.Source{
			{Path: orders},
			{Path: products},
		},
	}

	res, err := Run(context.Background(), run)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("failures=%v", res.Failed)
	}
	if len(res.Cleaned) != 2 {
		t.Fatalf("cleaned tables=%d, want 2", len(res.Cleaned))
	}

	mt := res.Merged
	if len(mt.Rows) != 3 {
		t.Fatalf("merged rows=%d, want 3", len(mt.Rows))
	}
	for _, col := range []string{"product_id", "revenue", "date", "category"} {
		if mt.ColumnIndex(col) < 0 {
			t.Fatalf("merged columns=%v, missing %s", mt.Columns, col)
		}
	}
	if got := mt.Prov.Unmatched["products"]; got != 0 {
		t.Fatalf("Unmatched[products]=%d, want 0", got)
	}

	fs, ok := res.Insights.Values["financial_summary"]
	if !ok {
		t.Fatalf("financial_summary skipped: %v", res.Insights.Skipped)
	}
	_ = fs

	if len(res.Diag.Entries()) == 0 {
		t.Fatalf("diagnostics empty")
	}
}

func TestRunFailedSourceSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "id,v\n1,2\n")

	run := config.Run{
		Sources: []config.Source{
			{Path: good},
			{Path: filepath.Join(dir, "missing.csv")},
		},
	}
	res, err := Run(context.Background(), run)
	if err != nil {
		t.Fatalf("Run() err=%v, want per-source skip", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Name != "missing" {
		t.Fatalf("Failed=%v", res.Failed)
	}
	if !errors.Is(res.Failed[0].Err, ErrSourceUnreadable) {
		t.Fatalf("err=%v, want ErrSourceUnreadable", res.Failed[0].Err)
	}
	if len(res.Merged.Rows) != 1 {
		t.Fatalf("merged rows=%d, want the good source only", len(res.Merged.Rows))
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	t.Parallel()

	run := config.Run{
		Sources: []config.Source{{Path: "/nonexistent/a.csv"}},
	}
	_, err := Run(context.Background(), run)
	if !errors.Is(err, ErrMergeAborted) {
		t.Fatalf("err=%v, want ErrMergeAborted", err)
	}
}

func TestRunUnjoinableSourceExcluded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id,v\n1,x\n2,y\n")
	b := writeFile(t, dir, "b.csv", "zzz\nunrelated\n")

	res, err := Run(context.Background(), config.Run{
		Sources: []config.Source{{Path: a}, {Path: b}},
	})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	found := false
	for _, f := range res.Failed {
		if f.Name == "b" && errors.Is(f.Err, ErrNoKeyFound) {
			found = true
		}
	}
	if !found {
		t.Fatalf("Failed=%v, want b with ErrNoKeyFound", res.Failed)
	}
}

func TestRunExplicitKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "ref,id\nr1,1\nr2,2\n")
	b := writeFile(t, dir, "b.csv", "ref,id\nr1,9\n")

	res, err := Run(context.Background(), config.Run{
		Sources: []config.Source{{Path: a}, {Path: b}},
		Keys:    map[string]string{"b": "ref"},
	})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if len(res.Merged.Rows) != 2 {
		t.Fatalf("merged rows=%d, want 2", len(res.Merged.Rows))
	}
	if got := res.Merged.Prov.Unmatched["b"]; got != 0 {
		t.Fatalf("Unmatched[b]=%d, want 0", got)
	}
}

func TestRunDateHint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Only half the values are dates, below the inference threshold; the
	// hint forces the column to date anyway.
	src := writeFile(t, dir, "a.csv", "id,when\n1,2024-01-01\n2,pending\n")

	res, err := Run(context.Background(), config.Run{
		Sources: []config.Source{{Path: src, DateColumns: []string{"when"}}},
	})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	ct := res.Cleaned[0]
	ix := ct.ColumnIndex("when")
	if ct.Kinds[ix].String() != "date" {
		t.Fatalf("kind=%v, want date (hinted)", ct.Kinds[ix])
	}
}
