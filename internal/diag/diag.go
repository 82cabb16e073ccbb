// Package diag accumulates structured pipeline diagnostics: per-column
// conversion failures, per-pair key scores, and per-table unmatched counts.
//
// The log is threaded explicitly through the stages rather than living in
// ambient mutable state; each stage appends and hands it on. It is consumed
// by operators for troubleshooting, never by the core components themselves.
package diag

import (
	"fmt"
	"io"
	"sync"
)

// Entry is one diagnostic line.
type Entry struct {
	Stage   string
	Table   string
	Message string
}

// Log collects entries in order. Safe for concurrent use (loaders run in
// parallel before the join barrier).
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Log { return &Log{} }

// Addf appends a formatted entry.
func (l *Log) Addf(stage, table, format string, a ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Stage: stage, Table: table, Message: fmt.Sprintf(format, a...)})
	l.mu.Unlock()
}

// Conversion records a column's coercion outcome.
func (l *Log) Conversion(table, column, kind string, converted, failed int, samples []string) {
	if failed == 0 {
		l.Addf("infer", table, "column %s: kind=%s converted=%d", column, kind, converted)
		return
	}
	l.Addf("infer", table, "column %s: kind=%s converted=%d failed=%d samples=%q",
		column, kind, converted, failed, samples)
}

// KeyScore records a resolved (or rejected) join key for a table pair.
func (l *Log) KeyScore(left, right, leftCol, rightCol string, name, overlap, combined float64, selected bool) {
	verdict := "rejected"
	if selected {
		verdict = "selected"
	}
	l.Addf("keyres", right, "%s.%s <-> %s.%s name=%.2f overlap=%.2f score=%.2f %s",
		left, leftCol, right, rightCol, name, overlap, combined, verdict)
}

// Unmatched records the outer-join leftovers for one source.
func (l *Log) Unmatched(table string, n int) {
	l.Addf("merge", table, "unmatched rows: %d", n)
}

// Entries returns a snapshot of the accumulated entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Render writes the log in a line-oriented format suitable for stderr.
func (l *Log) Render(w io.Writer) {
	for _, e := range l.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Stage, e.Table, e.Message)
	}
}
