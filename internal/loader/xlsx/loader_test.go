package xlsx

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"datafuse/internal/config"
)

func TestFromRows(t *testing.T) {
	t.Parallel()

	rt, err := fromRows(context.Background(), "t", [][]string{
		{"id", "name", ""},
		{"1", "one"},
		{"", "", ""},
		{"2", ""},
	})
	if err != nil {
		t.Fatalf("fromRows() err=%v", err)
	}
	if !reflect.DeepEqual(rt.Columns, []string{"id", "name"}) {
		t.Fatalf("cols=%v, want trailing blank header dropped", rt.Columns)
	}
	if len(rt.Rows) != 2 {
		t.Fatalf("rows=%d, want 2 (blank row skipped)", len(rt.Rows))
	}
	if rt.Rows[0][0] != "1" || rt.Rows[0][1] != "one" {
		t.Fatalf("row 0=%v", rt.Rows[0])
	}
	if rt.Rows[1][1] != nil {
		t.Fatalf("empty cell=%v, want nil", rt.Rows[1][1])
	}
}

func TestFromRowsEmptySheet(t *testing.T) {
	t.Parallel()

	if _, err := fromRows(context.Background(), "t", nil); err == nil {
		t.Fatalf("fromRows(empty) err=nil, want error")
	}
	if _, err := fromRows(context.Background(), "t", [][]string{{"", ""}}); err == nil {
		t.Fatalf("fromRows(blank header) err=nil, want error")
	}
}

func TestLoadWorkbook(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := map[string]any{
		"A1": "id", "B1": "amount",
		"A2": "1", "B2": "10.5",
		"A3": "2", "B3": "20.5",
	}
	for ref, v := range cells {
		if err := f.SetCellValue(sheet, ref, v); err != nil {
			t.Fatalf("SetCellValue(%s): %v", ref, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	var l Loader
	rt, err := l.Load(context.Background(), config.Source{Name: "book", Path: path})
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if !reflect.DeepEqual(rt.Columns, []string{"id", "amount"}) {
		t.Fatalf("cols=%v", rt.Columns)
	}
	if len(rt.Rows) != 2 || rt.Rows[1][1] != "20.5" {
		t.Fatalf("rows=%v", rt.Rows)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	var l Loader
	if _, err := l.Load(context.Background(), config.Source{Path: "does-not-exist.xlsx"}); err == nil {
		t.Fatalf("Load(missing) err=nil, want error")
	}
}
