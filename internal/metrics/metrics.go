// Package metrics provides a minimal metrics facade so pipeline code depends
// only on the Backend interface, never on a vendor SDK. The default backend
// is a no-op; cmd wiring may install a real one (see metrics/datadog).
package metrics

import "sync"

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	// IncCounter adds delta to a monotonically increasing counter.
	IncCounter(name string, delta float64, tags []string)
	// SetGauge records the current value of a gauge.
	SetGauge(name string, value float64, tags []string)
	// Flush submits buffered metrics. Called at least once at shutdown.
	Flush() error
}

type nop struct{}

func (nop) IncCounter(string, float64, []string) {}
func (nop) SetGauge(string, float64, []string)   {}
func (nop) Flush() error                         { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nop{}
)

// SetBackend installs b as the process-wide backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nop{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the installed backend.
func IncCounter(name string, delta float64, tags ...string) {
	current().IncCounter(name, delta, tags)
}

// SetGauge forwards to the installed backend.
func SetGauge(name string, value float64, tags ...string) {
	current().SetGauge(name, value, tags)
}

// Flush forwards to the installed backend.
func Flush() error { return current().Flush() }
