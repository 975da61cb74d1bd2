// Package metrics defines the backend-agnostic metrics surface used by the
// sniff and load commands.
//
// Commands depend only on Backend; concrete exporters (see the datadog
// subpackage) buffer and ship the values. Names and labels follow the
// Prometheus convention (snake_case names, label maps) even though the
// exporter may rewrite them for its own wire format.
package metrics

import "sync"

// Labels carries metric dimensions. Nil is a valid empty label set.
type Labels map[string]string

// Backend receives counter increments and histogram observations.
//
// Implementations must be safe for concurrent use. Close flushes any
// buffered values and releases background resources.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Close() error
}

// Nop discards every metric. Used when no exporter is configured.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}

var (
	mu      sync.RWMutex
	current Backend = Nop{}
)

// SetBackend installs the process-wide backend. Call once at startup,
// before any metrics are recorded.
func SetBackend(b Backend) {
	if b == nil {
		b = Nop{}
	}
	mu.Lock()
	current = b
	mu.Unlock()
}

// IncCounter increments a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	mu.RLock()
	b := current
	mu.RUnlock()
	b.IncCounter(name, delta, labels)
}

// ObserveHistogram records a histogram sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	mu.RLock()
	b := current
	mu.RUnlock()
	b.ObserveHistogram(name, value, labels)
}

// Flush forces a submission if the installed backend supports it.
func Flush() error {
	mu.RLock()
	b := current
	mu.RUnlock()
	if f, ok := b.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
