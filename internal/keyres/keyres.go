// Package keyres proposes join keys between cleaned tables.
//
// For every column pair it scores textual name similarity (three discrete
// tiers, deliberately not edit distance, so behavior stays predictable) and
// distinct-value overlap, then ranks by a weighted sum. The thresholds are
// fixed named constants because test expectations depend on them.
package keyres

import (
	"strings"

	"datafuse/internal/diag"
	"datafuse/internal/table"
)

const (
	// Name-similarity tiers.
	NameExact     = 1.0
	NameContains  = 0.7
	NameUnrelated = 0.0

	// Combined score weights.
	WeightName    = 0.4
	WeightOverlap = 0.6

	// MinScore is the floor a candidate must clear to be selected; below it
	// the table is excluded from the merge, never force-joined.
	MinScore = 0.3

	// overlapSampleCap bounds the distinct-value set per column so resolution
	// stays cheap on high-cardinality columns.
	overlapSampleCap = 10000
)

// Candidate is a scored join-key proposal between two tables. Ephemeral:
// produced here, consumed immediately by the merger.
type Candidate struct {
	LeftColumn   string
	RightColumn  string
	NameScore    float64
	OverlapScore float64
	Score        float64
}

// Resolve scores every column pair between left and right and returns the
// best candidate clearing MinScore. ok is false when no pair qualifies.
// Ties keep the earliest pair in column order for determinism.
func Resolve(left, right table.CleanedTable, dl *diag.Log) (best Candidate, ok bool) {
	leftSets := distinctSets(left)
	rightSets := distinctSets(right)

	for li, lc := range left.Columns {
		for ri, rc := range right.Columns {
			name := nameSimilarity(lc, rc)
			overlap := valueOverlap(leftSets[li], rightSets[ri])
			score := WeightName*name + WeightOverlap*overlap
			if score > best.Score {
				best = Candidate{
					LeftColumn:   lc,
					RightColumn:  rc,
					NameScore:    name,
					OverlapScore: overlap,
					Score:        score,
				}
			}
		}
	}

	ok = best.Score >= MinScore && best.LeftColumn != ""
	dl.KeyScore(left.Name, right.Name, best.LeftColumn, best.RightColumn,
		best.NameScore, best.OverlapScore, best.Score, ok)
	return best, ok
}

// nameSimilarity compares column names after lower-casing and stripping
// non-alphanumerics: exact match 1.0, substring containment 0.7, else 0.
func nameSimilarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return NameUnrelated
	}
	if na == nb {
		return NameExact
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return NameContains
	}
	return NameUnrelated
}

func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// valueOverlap is the fraction of the smaller set's values present in the
// larger set. Sets are bounded by overlapSampleCap at construction.
func valueOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	hits := 0
	for v := range small {
		if _, ok := large[v]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(small))
}

func distinctSets(t table.CleanedTable) []map[string]struct{} {
	sets := make([]map[string]struct{}, len(t.Columns))
	for i := range sets {
		sets[i] = make(map[string]struct{})
	}
	for _, row := range t.Rows {
		for i := range t.Columns {
			if i >= len(row) {
				continue
			}
			if len(sets[i]) >= overlapSampleCap {
				continue
			}
			s, ok := table.KeyString(row[i])
			if !ok {
				continue
			}
			sets[i][s] = struct{}{}
		}
	}
	return sets
}
