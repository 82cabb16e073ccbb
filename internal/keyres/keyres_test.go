package keyres

import (
	"fmt"
	"testing"

	"datafuse/internal/diag"
	"datafuse/internal/table"
)

func cleaned(name string, cols []string, rows [][]any) table.CleanedTable {
	kinds := make([]table.ColumnKind, len(cols))
	for i := range kinds {
		kinds[i] = table.KindCategorical
	}
	return table.CleanedTable{Name: name, Columns: cols, Kinds: kinds, Rows: rows}
}

func TestNameSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"product_id", "Product_ID", NameExact},
		{"id", "ID", NameExact},
		{"product_id", "id", NameContains},
		{"customer", "customer_name", NameContains},
		{"price", "quantity", NameUnrelated},
		{"", "id", NameUnrelated},
	}
	for _, tc := range tests {
		if got := nameSimilarity(tc.a, tc.b); got != tc.want {
			t.Fatalf("nameSimilarity(%q,%q)=%v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestValueOverlap(t *testing.T) {
	t.Parallel()

	set := func(vals ...string) map[string]struct{} {
		m := make(map[string]struct{})
		for _, v := range vals {
			m[v] = struct{}{}
		}
		return m
	}

	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{name: "identical", a: set("1", "2"), b: set("1", "2"), want: 1.0},
		{name: "half_of_smaller", a: set("1", "2"), b: set("2", "3", "4"), want: 0.5},
		{name: "disjoint", a: set("1"), b: set("2"), want: 0},
		{name: "empty", a: set(), b: set("1"), want: 0},
	}
	for _, tc := range tests {
		if got := valueOverlap(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: valueOverlap=%v, want %v", tc.name, got, tc.want)
		}
	}
}

// Same name modulo case plus 90% value overlap: the canonical join-key case.
func TestResolveCaseInsensitiveNames(t *testing.T) {
	t.Parallel()

	var leftRows, rightRows [][]any
	for i := 0; i < 10; i++ {
		leftRows = append(leftRows, []any{fmt.Sprintf("P%d", i), "x"})
	}
	for i := 1; i < 10; i++ { // 9 of 10 shared
		rightRows = append(rightRows, []any{fmt.Sprintf("P%d", i), "y"})
	}
	left := cleaned("a", []string{"product_id", "note"}, leftRows)
	right := cleaned("b", []string{"Product_ID", "desc"}, rightRows)

	cand, ok := Resolve(left, right, diag.New())
	if !ok {
		t.Fatalf("Resolve found no key")
	}
	if cand.LeftColumn != "product_id" || cand.RightColumn != "Product_ID" {
		t.Fatalf("selected %s/%s", cand.LeftColumn, cand.RightColumn)
	}
	if cand.NameScore != NameExact {
		t.Fatalf("NameScore=%v, want exact", cand.NameScore)
	}
	wantOverlap := 1.0 // all 9 of the smaller set appear in the larger
	if cand.OverlapScore != wantOverlap {
		t.Fatalf("OverlapScore=%v, want %v", cand.OverlapScore, wantOverlap)
	}
	wantScore := WeightName*NameExact + WeightOverlap*wantOverlap
	if cand.Score != wantScore {
		t.Fatalf("Score=%v, want %v", cand.Score, wantScore)
	}
}

// Unrelated names but full value overlap still clears the floor: overlap
// alone contributes 0.6.
func TestResolveOverlapOnly(t *testing.T) {
	t.Parallel()

	left := cleaned("a", []string{"code"}, [][]any{{"1"}, {"2"}, {"3"}})
	right := cleaned("b", []string{"ref"}, [][]any{{"1"}, {"2"}, {"3"}})

	cand, ok := Resolve(left, right, diag.New())
	if !ok {
		t.Fatalf("Resolve found no key")
	}
	if cand.Score != WeightOverlap {
		t.Fatalf("Score=%v, want %v", cand.Score, WeightOverlap)
	}
}

// Matching names with zero shared values score 0.4, clearing MinScore; the
// name signal alone can select a key for disjoint datasets.
func TestResolveNameOnly(t *testing.T) {
	t.Parallel()

	left := cleaned("a", []string{"id"}, [][]any{{"1"}, {"2"}})
	right := cleaned("b", []string{"id"}, [][]any{{"8"}, {"9"}})

	cand, ok := Resolve(left, right, diag.New())
	if !ok {
		t.Fatalf("Resolve found no key")
	}
	if cand.Score != WeightName*NameExact {
		t.Fatalf("Score=%v, want %v", cand.Score, WeightName*NameExact)
	}
}

func TestResolveNothingQualifies(t *testing.T) {
	t.Parallel()

	left := cleaned("a", []string{"alpha"}, [][]any{{"1"}})
	right := cleaned("b", []string{"beta"}, [][]any{{"2"}})

	if _, ok := Resolve(left, right, diag.New()); ok {
		t.Fatalf("Resolve selected a key for unrelated tables")
	}
}

func TestResolveLogsDecision(t *testing.T) {
	t.Parallel()

	dl := diag.New()
	left := cleaned("a", []string{"id"}, [][]any{{"1"}})
	right := cleaned("b", []string{"id"}, [][]any{{"1"}})
	Resolve(left, right, dl)
	if len(dl.Entries()) == 0 {
		t.Fatalf("key decision not logged")
	}
}
