// Package all registers every export backend. Import it for side effects
// from binaries that select sinks by config.
package all

import (
	_ "datafuse/internal/export/csvfile"
	_ "datafuse/internal/export/mssql"
	_ "datafuse/internal/export/postgres"
	_ "datafuse/internal/export/sqlite"
)
