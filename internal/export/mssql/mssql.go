// Package mssql exports the merged dataset into SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"datafuse/internal/config"
	"datafuse/internal/export"
	"datafuse/internal/export/sqldb"
	"datafuse/internal/table"
)

func init() {
	export.Register("mssql", New)
}

func New(ctx context.Context, target config.ExportTarget) (export.Exporter, error) {
	db, err := sql.Open("sqlserver", target.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	tbl := target.Table
	if tbl == "" {
		tbl = "merged"
	}
	return &sqldb.Exporter{
		DB:    db,
		Table: tbl,
		Dialect: sqldb.Dialect{
			Placeholder: placeholder,
			TypeFor:     typeFor,
			QuoteIdent:  quoteBracket,
			CreateTable: createTable,
		},
	}, nil
}

func placeholder(n int) string {
	return "@p" + strconv.Itoa(n)
}

func typeFor(k table.ColumnKind) string {
	switch k {
	case table.KindNumeric:
		return "FLOAT"
	case table.KindDate:
		return "DATE"
	default:
		return "NVARCHAR(MAX)"
	}
}

func quoteBracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// createTable emits an existence-guarded CREATE TABLE; SQL Server has no
// IF NOT EXISTS clause on CREATE TABLE itself.
func createTable(d sqldb.Dialect, tbl string, cols []string, kinds []table.ColumnKind) string {
	var b strings.Builder
	b.WriteString("IF OBJECT_ID(N'")
	b.WriteString(strings.ReplaceAll(tbl, "'", "''"))
	b.WriteString("', N'U') IS NULL CREATE TABLE ")
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
