// Package export writes the merged dataset to a sink. Backends register
// themselves from init (import datafuse/internal/export/all once) and are
// selected by kind, mirroring database/sql driver registration.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"datafuse/internal/config"
	"datafuse/internal/table"
)

// Exporter writes one MergedTable to its destination.
type Exporter interface {
	Export(ctx context.Context, mt table.MergedTable) error
	// Close releases backend resources. Call once, after Export.
	Close() error
}

// Factory builds an Exporter from a target config.
type Factory func(ctx context.Context, target config.ExportTarget) (Exporter, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs a backend factory. Panics on duplicate kinds.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("export: duplicate registration for %q", kind))
	}
	factories[kind] = f
}

// New builds an Exporter for the target's kind.
func New(ctx context.Context, target config.ExportTarget) (Exporter, error) {
	mu.RLock()
	f, ok := factories[target.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("export: unknown kind %q (registered: %s)", target.Kind, strings.Join(kinds(), ", "))
	}
	return f(ctx, target)
}

func kinds() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
