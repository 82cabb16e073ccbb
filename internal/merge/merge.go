// Package merge joins cleaned tables into one MergedTable.
//
// The join is left-anchored: the first table anchors, and every subsequent
// table is outer-joined onto the progressively merged result using its
// resolved (or explicitly supplied) key. Rows without a match on either side
// are retained with missing markers and counted in provenance; partial data
// is reported, never silently dropped.
package merge

import (
	"fmt"

	"datafuse/internal/diag"
	"datafuse/internal/keyres"
	"datafuse/internal/table"
)

// mergedName labels the progressive join result in key-resolution
// diagnostics.
const mergedName = "merged"

// Tables merges the given tables in order. keys maps a source table name to
// the column to join on, bypassing automatic resolution for that table; when
// the merged side lacks a same-named column the override cannot apply and
// the table is excluded. A table for which no key clears the resolver
// threshold is likewise excluded and reported, not force-joined.
func Tables(tables []table.CleanedTable, keys map[string]string, dl *diag.Log) (table.MergedTable, error) {
	if len(tables) == 0 {
		return table.MergedTable{}, fmt.Errorf("merge: no tables")
	}

	anchor := tables[0]
	st := &state{
		cols:  append([]string(nil), anchor.Columns...),
		kinds: append([]table.ColumnKind(nil), anchor.Kinds...),
	}
	for _, row := range anchor.Rows {
		st.rows = append(st.rows, append([]any(nil), row...))
		st.srcs = append(st.srcs, []string{anchor.Name})
	}

	prov := table.Provenance{Unmatched: make(map[string]int)}

	for _, t := range tables[1:] {
		leftIdx, rightIdx, ok := resolveKey(st, t, keys, dl)
		if !ok {
			prov.Excluded = append(prov.Excluded, t.Name)
			dl.Addf("merge", t.Name, "excluded: no join key")
			continue
		}
		rightUnmatched, leftUnmatched := st.join(t, leftIdx, rightIdx)
		prov.Unmatched[t.Name] = rightUnmatched
		dl.Unmatched(t.Name, rightUnmatched)
		if leftUnmatched > 0 {
			dl.Addf("merge", mergedName, "rows without a partner in %s: %d", t.Name, leftUnmatched)
		}
	}

	prov.RowSources = st.srcs
	return table.MergedTable{
		Columns: st.cols,
		Kinds:   st.kinds,
		Rows:    st.rows,
		Prov:    prov,
	}, nil
}

type state struct {
	cols  []string
	kinds []table.ColumnKind
	rows  [][]any
	srcs  [][]string
}

func (s *state) colIndex(name string) int {
	for i, c := range s.cols {
		if c == name {
			return i
		}
	}
	return -1
}

func (s *state) asCleaned() table.CleanedTable {
	return table.CleanedTable{
		Name:    mergedName,
		Columns: s.cols,
		Kinds:   s.kinds,
		Rows:    s.rows,
	}
}

func resolveKey(st *state, t table.CleanedTable, keys map[string]string, dl *diag.Log) (leftIdx, rightIdx int, ok bool) {
	if k, explicit := keys[t.Name]; explicit {
		rightIdx = t.ColumnIndex(k)
		leftIdx = st.colIndex(k)
		if rightIdx < 0 || leftIdx < 0 {
			dl.Addf("keyres", t.Name, "explicit key %q not present on both sides", k)
			return 0, 0, false
		}
		dl.Addf("keyres", t.Name, "explicit key %q", k)
		return leftIdx, rightIdx, true
	}

	cand, found := keyres.Resolve(st.asCleaned(), t, dl)
	if !found {
		return 0, 0, false
	}
	return st.colIndex(cand.LeftColumn), t.ColumnIndex(cand.RightColumn), true
}

// join outer-joins t onto the current state. The key columns are unified
// into the existing left column; non-key column name collisions get the
// source table's identifier as a suffix.
func (s *state) join(t table.CleanedTable, leftIdx, rightIdx int) (rightUnmatched, leftUnmatched int) {
	// Layout of appended columns: every right column except the key.
	appended := make([]int, 0, len(t.Columns)-1)
	for i, c := range t.Columns {
		if i == rightIdx {
			continue
		}
		name := c
		if s.colIndex(name) >= 0 {
			name = c + "_" + t.Name
		}
		s.cols = append(s.cols, name)
		s.kinds = append(s.kinds, t.Kinds[i])
		appended = append(appended, i)
	}

	// Index right rows by canonical key value.
	byKey := make(map[string][]int, len(t.Rows))
	for i, row := range t.Rows {
		if rightIdx >= len(row) {
			continue
		}
		if k, ok := table.KeyString(row[rightIdx]); ok {
			byKey[k] = append(byKey[k], i)
		}
	}
	matched := make([]bool, len(t.Rows))

	widen := func(left []any, srcs []string, right []any, withRight bool) ([]any, []string) {
		row := make([]any, 0, len(left)+len(appended))
		row = append(row, left...)
		for _, ri := range appended {
			if withRight && ri < len(right) {
				row = append(row, right[ri])
			} else {
				row = append(row, nil)
			}
		}
		if withRight {
			return row, appendSource(srcs, t.Name)
		}
		return row, srcs
	}

	var outRows [][]any
	var outSrcs [][]string
	for i, left := range s.rows {
		var hits []int
		if leftIdx < len(left) {
			if k, ok := table.KeyString(left[leftIdx]); ok {
				hits = byKey[k]
			}
		}
		if len(hits) == 0 {
			leftUnmatched++
			row, srcs := widen(left, s.srcs[i], nil, false)
			outRows = append(outRows, row)
			outSrcs = append(outSrcs, srcs)
			continue
		}
		for _, ri := range hits {
			matched[ri] = true
			row, srcs := widen(left, s.srcs[i], t.Rows[ri], true)
			outRows = append(outRows, row)
			outSrcs = append(outSrcs, srcs)
		}
	}

	// Right rows without a partner: retained, left side filled with missing.
	for i, row := range t.Rows {
		if matched[i] {
			continue
		}
		rightUnmatched++
		wide := make([]any, len(s.cols))
		// Unify the key into the left key column.
		if rightIdx < len(row) {
			wide[leftIdx] = row[rightIdx]
		}
		base := len(s.cols) - len(appended)
		for j, ri := range appended {
			if ri < len(row) {
				wide[base+j] = row[ri]
			}
		}
		outRows = append(outRows, wide)
		outSrcs = append(outSrcs, []string{t.Name})
	}

	s.rows = outRows
	s.srcs = outSrcs
	return rightUnmatched, leftUnmatched
}

func appendSource(srcs []string, name string) []string {
	for _, s := range srcs {
		if s == name {
			return srcs
		}
	}
	out := make([]string, 0, len(srcs)+1)
	out = append(out, srcs...)
	return append(out, name)
}
