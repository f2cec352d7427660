package errors

import (
	"fmt"
	"sync"
)

// Log is a bounded rolling log of per-source errors. Once the capacity is
// reached the oldest entries are discarded. Per-source failures never abort
// a load cycle; they end up here and the source is skipped.
type Log struct {
	mu      sync.Mutex
	entries []string
	max     int
}

// NewLog creates a bounded error log. A non-positive max falls back to 50.
func NewLog(max int) *Log {
	if max <= 0 {
		max = 50
	}
	return &Log{max: max}
}

// Append records an error message, evicting the oldest entry when full.
func (l *Log) Append(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, fmt.Sprintf(format, args...))
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Last returns up to n most recent entries, newest last.
func (l *Log) Last(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]string, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
