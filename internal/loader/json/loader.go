// Package json loads hierarchical-record sources.
//
// Accepted shapes, in detection order:
//   - a root array of objects
//   - an envelope object whose largest array-of-objects field holds the
//     records (remaining envelope fields are ignored)
//   - a single root object, which becomes one row
//
// Trailing newline-delimited objects after the root value are also accepted.
// Nested objects and arrays are kept as cell values; the flattener removes
// them before type inference.
package json

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"datafuse/internal/config"
	"datafuse/internal/loader"
	"datafuse/internal/table"
)

func init() {
	loader.Register("json", func() loader.Loader { return &Loader{} })
}

type Loader struct{}

func (l *Loader) Load(ctx context.Context, src config.Source) (table.RawTable, error) {
	b, err := os.ReadFile(src.Path)
	if err != nil {
		return table.RawTable{}, fmt.Errorf("read %s: %w", src.Path, err)
	}
	return Parse(ctx, src.EffectiveName(), b)
}

// Parse decodes JSON bytes into a RawTable. Columns are the union of record
// keys in sorted order, so the result is deterministic regardless of per-
// record key sets.
func Parse(ctx context.Context, name string, b []byte) (table.RawTable, error) {
	recs, err := decodeRecords(b)
	if err != nil {
		return table.RawTable{}, err
	}
	recs = unwrapEnvelope(recs)

	cols := unionKeys(recs)
	rt := table.RawTable{Name: name, Columns: cols}

	colIx := make(map[string]int, len(cols))
	for i, c := range cols {
		colIx[c] = i
	}

	for _, rec := range recs {
		select {
		case <-ctx.Done():
			return table.RawTable{}, ctx.Err()
		default:
		}
		row := make([]any, len(cols))
		for k, v := range rec {
			row[colIx[k]] = v
		}
		rt.Rows = append(rt.Rows, row)
	}
	return rt, nil
}

func decodeRecords(b []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))

	var root any
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var out []map[string]any
	switch v := root.(type) {
	case []any:
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
	case map[string]any:
		out = append(out, v)
	default:
		return nil, fmt.Errorf("decode json: unsupported root %T (want object or array)", root)
	}

	// Tolerate trailing NDJSON objects after the root value.
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			break
		}
		out = append(out, obj)
	}
	return out, nil
}

// unwrapEnvelope handles the common {"meta":..., "data":[{...},...]} shape
// without hard-coding field names: when there is exactly one record and it
// contains array-of-object fields, the largest such array becomes the record
// set.
func unwrapEnvelope(in []map[string]any) []map[string]any {
	if len(in) != 1 {
		return in
	}
	var best []map[string]any
	for _, v := range in[0] {
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 {
			continue
		}
		objs := make([]map[string]any, 0, len(arr))
		for _, elem := range arr {
			m, ok := elem.(map[string]any)
			if !ok {
				objs = nil
				break
			}
			objs = append(objs, m)
		}
		if len(objs) > len(best) {
			best = objs
		}
	}
	if len(best) > 0 {
		return best
	}
	return in
}

func unionKeys(recs []map[string]any) []string {
	set := make(map[string]struct{})
	for _, r := range recs {
		for k := range r {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
