package telemetry

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped logger so the logging router can reuse
// it as its fallback.
func (l *loggerAdapter) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Counters is an in-memory Metrics keyed by name. The diagnostics endpoint
// reads it through Snapshot.
type Counters struct {
	values sync.Map
}

func (c *Counters) value(key string) *atomic.Uint64 {
	if existing, ok := c.values.Load(key); ok {
		return existing.(*atomic.Uint64)
	}
	actual, _ := c.values.LoadOrStore(key, new(atomic.Uint64))
	return actual.(*atomic.Uint64)
}

func (c *Counters) Add(key string, delta uint64) {
	if c == nil || key == "" {
		return
	}
	c.value(key).Add(delta)
}

func (c *Counters) Store(key string, value uint64) {
	if c == nil || key == "" {
		return
	}
	c.value(key).Store(value)
}

// Load returns the current value of key.
func (c *Counters) Load(key string) uint64 {
	if c == nil {
		return 0
	}
	if existing, ok := c.values.Load(key); ok {
		return existing.(*atomic.Uint64).Load()
	}
	return 0
}

// Snapshot copies every value.
func (c *Counters) Snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	if c == nil {
		return out
	}
	c.values.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return out
}

// Keys lists the recorded metric names in order.
func (c *Counters) Keys() []string {
	snapshot := c.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Multi fans every call out to each non-nil Metrics.
func Multi(metrics ...Metrics) Metrics {
	targets := make(multiMetrics, 0, len(metrics))
	for _, m := range metrics {
		if m != nil {
			targets = append(targets, m)
		}
	}
	return targets
}

type multiMetrics []Metrics

func (m multiMetrics) Add(key string, delta uint64) {
	for _, target := range m {
		target.Add(key, delta)
	}
}

func (m multiMetrics) Store(key string, value uint64) {
	for _, target := range m {
		target.Store(key, value)
	}
}
