// Package sqldb holds the SQL export logic shared by the sqlite, postgres,
// and mssql backends. Each backend supplies a Dialect; everything else
// (table creation, batched inserts, value conversion) is common database/sql
// code.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"datafuse/internal/table"
)

// Dialect captures the per-backend SQL differences.
type Dialect struct {
	// Placeholder renders the parameter marker for 1-based position n.
	Placeholder func(n int) string
	// TypeFor maps a column kind to the backend column type.
	TypeFor func(k table.ColumnKind) string
	// QuoteIdent quotes a table or column identifier.
	QuoteIdent func(s string) string
	// CreatePrefix is "CREATE TABLE IF NOT EXISTS" where supported; mssql
	// needs its own existence guard and overrides CreateTable entirely.
	CreateTable func(d Dialect, tbl string, cols []string, kinds []table.ColumnKind) string
}

// insertBatchRows bounds multi-row insert statements; conservative enough
// for every backend's parameter limit at reasonable column counts.
const insertBatchRows = 200

// Exporter writes a MergedTable into one database table, creating it first.
type Exporter struct {
	DB      *sql.DB
	Table   string
	Dialect Dialect
}

func (e *Exporter) Export(ctx context.Context, mt table.MergedTable) error {
	if len(mt.Columns) == 0 {
		return fmt.Errorf("sql export: merged table has no columns")
	}

	ddl := e.Dialect.CreateTable(e.Dialect, e.Table, mt.Columns, mt.Kinds)
	if _, err := e.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", e.Table, err)
	}

	for start := 0; start < len(mt.Rows); start += insertBatchRows {
		end := start + insertBatchRows
		if end > len(mt.Rows) {
			end = len(mt.Rows)
		}
		if err := e.insertBatch(ctx, mt, mt.Rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) insertBatch(ctx context.Context, mt table.MergedTable, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(e.Dialect.QuoteIdent(e.Table))
	b.WriteString(" (")
	for i, c := range mt.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Dialect.QuoteIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(mt.Columns))
	p := 1
	for ri, row := range rows {
		if ri > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for ci := range mt.Columns {
			if ci > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Dialect.Placeholder(p))
			p++
			var v any
			if ci < len(row) {
				v = sqlValue(row[ci])
			}
			args = append(args, v)
		}
		b.WriteString(")")
	}

	if _, err := e.DB.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", e.Table, err)
	}
	return nil
}

func (e *Exporter) Close() error { return e.DB.Close() }

// sqlValue converts a cell to a driver-friendly value. Dates are stored as
// ISO strings for uniform behavior across the three backends.
func sqlValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return v
}

// StandardCreateTable is the CREATE TABLE IF NOT EXISTS shape shared by
// sqlite and postgres.
func StandardCreateTable(d Dialect, tbl string, cols []string, kinds []table.ColumnKind) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(d.QuoteIdent(tbl))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.QuoteIdent(c))
		b.WriteString(" ")
		b.WriteString(d.TypeFor(kinds[i]))
	}
	b.WriteString(")")
	return b.String()
}

// QuoteDouble quotes an identifier with double quotes, doubling embedded
// quotes (sqlite, postgres).
func QuoteDouble(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
