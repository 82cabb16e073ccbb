// Package loader defines the Loader contract and a backend registry.
// Concrete loaders live in subpackages and register themselves from init,
// so callers import datafuse/internal/loader/all once and select by kind.
package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"datafuse/internal/config"
	"datafuse/internal/table"
)

// Loader reads one source into a RawTable.
//
// Contract: a Loader fails only when the source cannot be opened or parsed at
// all. Malformed individual rows are retained with raw values for downstream
// handling, never dropped or fatal.
type Loader interface {
	Load(ctx context.Context, src config.Source) (table.RawTable, error)
}

// Factory constructs a Loader for a registered kind.
type Factory func() Loader

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register installs a factory under kind. Panics on duplicates, matching the
// usual database/sql driver registration behavior.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("loader: duplicate registration for %q", kind))
	}
	registry[kind] = f
}

// For returns a Loader for kind, or an error naming the registered kinds.
func For(kind string) (Loader, error) {
	mu.RLock()
	f, ok := registry[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("loader: unknown kind %q (registered: %s)", kind, strings.Join(kinds(), ", "))
	}
	return f(), nil
}

func kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DetectKind maps a file extension to a loader kind. Unknown extensions
// default to csv, the most forgiving text shape.
func DetectKind(path string) string {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".json"), strings.HasSuffix(p, ".ndjson"), strings.HasSuffix(p, ".jsonl"):
		return "json"
	case strings.HasSuffix(p, ".xlsx"), strings.HasSuffix(p, ".xlsm"):
		return "xlsx"
	case strings.HasSuffix(p, ".html"), strings.HasSuffix(p, ".htm"):
		return "html"
	default:
		return "csv"
	}
}
