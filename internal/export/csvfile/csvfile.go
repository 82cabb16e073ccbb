// Package csvfile exports the merged dataset as a CSV file.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"datafuse/internal/config"
	"datafuse/internal/export"
	"datafuse/internal/table"
)

func init() {
	export.Register("csv", New)
}

type Exporter struct {
	path string
}

func New(_ context.Context, target config.ExportTarget) (export.Exporter, error) {
	if target.Path == "" {
		return nil, fmt.Errorf("csv export: path is required")
	}
	return &Exporter{path: target.Path}, nil
}

func (e *Exporter) Export(ctx context.Context, mt table.MergedTable) error {
	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", e.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(mt.Columns); err != nil {
		return err
	}

	rec := make([]string, len(mt.Columns))
	for _, row := range mt.Rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = cellString(row[i])
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func (e *Exporter) Close() error { return nil }

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
