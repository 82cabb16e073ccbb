// Package xlsx loads tabular-sheet sources via excelize.
//
// Only the first sheet is read. The first row is the header; trailing blank
// rows and columns are dropped. Cells arrive as strings and are typed later
// by the inferencer, matching the other text-shaped loaders.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"datafuse/internal/config"
	"datafuse/internal/loader"
	"datafuse/internal/table"
)

func init() {
	loader.Register("xlsx", func() loader.Loader { return &Loader{} })
}

type Loader struct{}

func (l *Loader) Load(ctx context.Context, src config.Source) (table.RawTable, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return table.RawTable{}, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.RawTable{}, fmt.Errorf("%s: workbook has no sheets", src.Path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return table.RawTable{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRows(ctx, src.EffectiveName(), rows)
}

func fromRows(ctx context.Context, name string, rows [][]string) (table.RawTable, error) {
	if len(rows) == 0 {
		return table.RawTable{}, fmt.Errorf("sheet is empty (header row required)")
	}

	header := trimTrailingBlank(rows[0])
	if len(header) == 0 {
		return table.RawTable{}, fmt.Errorf("sheet has a blank header row")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rt := table.RawTable{Name: name, Columns: header}
	for _, rec := range rows[1:] {
		select {
		case <-ctx.Done():
			return table.RawTable{}, ctx.Err()
		default:
		}
		if allBlank(rec) {
			continue
		}
		row := make([]any, len(header))
		for i := range header {
			if i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			row[i] = v
		}
		rt.Rows = append(rt.Rows, row)
	}
	return rt, nil
}

func trimTrailingBlank(ss []string) []string {
	end := len(ss)
	for end > 0 && strings.TrimSpace(ss[end-1]) == "" {
		end--
	}
	return ss[:end]
}

func allBlank(ss []string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
