// Package flatten converts nested cell values into flat tabular columns.
//
// Nested objects become dotted columns (a -> {"b": 1} yields column "a.b").
// Arrays row-explode: each element produces its own output row with all
// non-array fields repeated. First-element projection silently loses data and
// is deliberately not implemented. Flattening runs once, before type
// inference, and its output contains no nested cells and no duplicate column
// names.
package flatten

import (
	"sort"
	"strconv"

	"datafuse/internal/table"
)

// Sep joins nested path segments.
const Sep = "."

type kv struct {
	path string
	val  any
	src  int // source column index, for collision attribution
}

// Table flattens rt. Column order is first-seen order across rows; a
// flattened path colliding with a column from a different source column is
// disambiguated by appending the table's identifier.
func Table(rt table.RawTable) table.RawTable {
	if !hasNested(rt) && !hasDuplicateColumns(rt.Columns) {
		return rt
	}

	// names maps a flattened path per source column to its final name.
	type ownerKey struct {
		path string
		src  int
	}
	assigned := make(map[ownerKey]string)
	taken := make(map[string]int) // final name -> owning src column
	var columns []string
	colIx := make(map[string]int)

	nameFor := func(p kv) string {
		k := ownerKey{p.path, p.src}
		if n, ok := assigned[k]; ok {
			return n
		}
		name := p.path
		if owner, clash := taken[name]; clash && owner != p.src {
			name = p.path + "_" + rt.Name
			for i := 2; ; i++ {
				if owner, clash := taken[name]; !clash || owner == p.src {
					break
				}
				name = p.path + "_" + rt.Name + strconv.Itoa(i)
			}
		}
		assigned[k] = name
		if _, seen := taken[name]; !seen {
			taken[name] = p.src
			colIx[name] = len(columns)
			columns = append(columns, name)
		}
		return name
	}

	var outRows [][]map[string]any // staged as name->value until columns settle
	for _, row := range rt.Rows {
		var kvs []kv
		for j, col := range rt.Columns {
			if j >= len(row) {
				continue
			}
			flattenValue(col, j, row[j], &kvs)
		}
		exploded := explode(kvs)
		staged := make([]map[string]any, 0, len(exploded))
		for _, er := range exploded {
			m := make(map[string]any, len(er))
			for _, p := range er {
				m[nameFor(p)] = p.val
			}
			staged = append(staged, m)
		}
		outRows = append(outRows, staged)
	}

	out := table.RawTable{Name: rt.Name, Columns: columns}
	for _, staged := range outRows {
		for _, m := range staged {
			row := make([]any, len(columns))
			for name, v := range m {
				row[colIx[name]] = v
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// flattenValue walks v and emits leaf kvs. Arrays are kept whole here; the
// explode step turns them into rows.
func flattenValue(path string, src int, v any, out *[]kv) {
	m, ok := v.(map[string]any)
	if !ok {
		*out = append(*out, kv{path: path, val: v, src: src})
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flattenValue(path+Sep+k, src, m[k], out)
	}
}

// explode expands array-valued cells into multiple rows. With several array
// fields in one record the result is their cartesian product, processed in
// field order for determinism.
func explode(kvs []kv) [][]kv {
	rows := [][]kv{{}}
	for _, p := range kvs {
		arr, isArr := p.val.([]any)
		if !isArr {
			for i := range rows {
				rows[i] = append(rows[i], p)
			}
			continue
		}

		var variants [][]kv
		if len(arr) == 0 {
			variants = [][]kv{{{path: p.path, val: nil, src: p.src}}}
		} else {
			for _, elem := range arr {
				var sub []kv
				flattenValue(p.path, p.src, elem, &sub)
				variants = append(variants, explode(sub)...)
			}
		}

		next := make([][]kv, 0, len(rows)*len(variants))
		for _, r := range rows {
			for _, v := range variants {
				nr := make([]kv, len(r), len(r)+len(v))
				copy(nr, r)
				nr = append(nr, v...)
				next = append(next, nr)
			}
		}
		rows = next
	}
	return rows
}

func hasNested(rt table.RawTable) bool {
	for _, row := range rt.Rows {
		for _, v := range row {
			switch v.(type) {
			case map[string]any, []any:
				return true
			}
		}
	}
	return false
}

func hasDuplicateColumns(cols []string) bool {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			return true
		}
		seen[c] = struct{}{}
	}
	return false
}
