// Package all registers every loader backend with the loader factory.
// Import for side effects.
package all

import (
	_ "datafuse/internal/loader/csv"
	_ "datafuse/internal/loader/htmltab"
	_ "datafuse/internal/loader/json"
	_ "datafuse/internal/loader/xlsx"
)
