// Package sqlite exports the merged dataset into a SQLite database via the
// cgo-free modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"datafuse/internal/config"
	"datafuse/internal/export"
	"datafuse/internal/export/sqldb"
	"datafuse/internal/table"
)

func init() {
	export.Register("sqlite", New)
}

func New(ctx context.Context, target config.ExportTarget) (export.Exporter, error) {
	db, err := sql.Open("sqlite", target.DSN)
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
			Placeholder: func(int) string { return "?" },
			TypeFor:     typeFor,
			QuoteIdent:  sqldb.QuoteDouble,
			CreateTable: sqldb.StandardCreateTable,
		},
	}, nil
}

// SQLite has no date type; dates land as ISO TEXT for reliable round-trips.
func typeFor(k table.ColumnKind) string {
	switch k {
	case table.KindNumeric:
		return "REAL"
	default:
		return "TEXT"
	}
}
