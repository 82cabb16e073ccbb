package json

import (
	"context"
	"reflect"
	"testing"
)

func parse(t *testing.T, in string) ([]string, [][]any) {
	t.Helper()
	rt, err := Parse(context.Background(), "t", []byte(in))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	return rt.Columns, rt.Rows
}

func TestRootArray(t *testing.T) {
	t.Parallel()

	cols, rows := parse(t, `[{"id": 1, "name": "one"}, {"id": 2, "name": "two"}]`)
	if !reflect.DeepEqual(cols, []string{"id", "name"}) {
		t.Fatalf("cols=%v", cols)
	}
	if len(rows) != 2 || rows[0][0] != float64(1) || rows[1][1] != "two" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestSingleObjectIsOneRow(t *testing.T) {
	t.Parallel()

	cols, rows := parse(t, `{"id": 1, "name": "solo"}`)
	if !reflect.DeepEqual(cols, []string{"id", "name"}) {
		t.Fatalf("cols=%v", cols)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%v", rows)
	}
}

func TestEnvelopeUnwrapped(t *testing.T) {
	t.Parallel()

	in := `{"meta": {"count": 2}, "data": [{"id": 1}, {"id": 2}], "errors": []}`
	cols, rows := parse(t, in)
	if !reflect.DeepEqual(cols, []string{"id"}) {
		t.Fatalf("cols=%v, want records from the data array", cols)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%v", rows)
	}
}

// With several array-of-object fields the largest one holds the records.
func TestEnvelopeLargestArrayWins(t *testing.T) {
	t.Parallel()

	in := `{"warnings": [{"msg": "w"}], "records": [{"id": 1}, {"id": 2}, {"id": 3}]}`
	cols, rows := parse(t, in)
	if !reflect.DeepEqual(cols, []string{"id"}) {
		t.Fatalf("cols=%v", cols)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want 3", len(rows))
	}
}

func TestUnionKeysSorted(t *testing.T) {
	t.Parallel()

	cols, rows := parse(t, `[{"b": 1}, {"a": 2, "c": 3}]`)
	if !reflect.DeepEqual(cols, []string{"a", "b", "c"}) {
		t.Fatalf("cols=%v", cols)
	}
	// First record has no "a": missing marker.
	if rows[0][0] != nil || rows[0][1] != float64(1) {
		t.Fatalf("rows=%v", rows)
	}
}

func TestNestedValuesKept(t *testing.T) {
	t.Parallel()

	cols, rows := parse(t, `[{"id": 1, "addr": {"city": "rome"}, "tags": ["a"]}]`)
	if !reflect.DeepEqual(cols, []string{"addr", "id", "tags"}) {
		t.Fatalf("cols=%v", cols)
	}
	if _, ok := rows[0][0].(map[string]any); !ok {
		t.Fatalf("addr cell=%T, want nested map kept for the flattener", rows[0][0])
	}
	if _, ok := rows[0][2].([]any); !ok {
		t.Fatalf("tags cell=%T, want array kept", rows[0][2])
	}
}

func TestTrailingNDJSON(t *testing.T) {
	t.Parallel()

	_, rows := parse(t, "{\"id\": 1}\n{\"id\": 2}\n{\"id\": 3}\n")
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want 3", len(rows))
	}
}

func TestScalarRootRejected(t *testing.T) {
	t.Parallel()

	if _, err := Parse(context.Background(), "t", []byte(`42`)); err == nil {
		t.Fatalf("Parse(scalar) err=nil, want error")
	}
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()

	cols, rows := parse(t, "")
	if len(cols) != 0 || len(rows) != 0 {
		t.Fatalf("empty input produced %v / %v", cols, rows)
	}
}

func TestArrayOfScalarsSkipped(t *testing.T) {
	t.Parallel()

	_, rows := parse(t, `[1, 2, {"id": 3}]`)
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want only the object element", len(rows))
	}
}
