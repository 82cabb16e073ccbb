// Package postgres exports the merged dataset into PostgreSQL via the pgx
// stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"

	"datafuse/internal/config"
	"datafuse/internal/export"
	"datafuse/internal/export/sqldb"
	"datafuse/internal/table"
)

func init() {
	export.Register("postgres", New)
}

func New(ctx context.Context, target config.ExportTarget) (export.Exporter, error) {
	db, err := sql.Open("pgx", target.DSN)
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
			QuoteIdent:  sqldb.QuoteDouble,
			CreateTable: sqldb.StandardCreateTable,
		},
	}, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func typeFor(k table.ColumnKind) string {
	switch k {
	case table.KindNumeric:
		return "double precision"
	case table.KindDate:
		return "date"
	default:
		return "text"
	}
}
