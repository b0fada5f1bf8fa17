package telemetry

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exports Metrics keys as Prometheus series. Keys passed to Add
// become counters and keys passed to Store become gauges; both are created
// on first use. A key ending in "_total" is always a counter.
type Prometheus struct {
	namespace string
	registry  *prometheus.Registry

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewPrometheus builds a registry carrying the Go runtime and process
// collectors.
func NewPrometheus(namespace string) *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Prometheus{
		namespace: namespace,
		registry:  registry,
		counters:  make(map[string]prometheus.Counter),
		gauges:    make(map[string]prometheus.Gauge),
	}
}

func (p *Prometheus) Add(key string, delta uint64) {
	if p == nil || key == "" {
		return
	}
	p.counter(key).Add(float64(delta))
}

func (p *Prometheus) Store(key string, value uint64) {
	if p == nil || key == "" {
		return
	}
	if strings.HasSuffix(key, "_total") {
		// Counters cannot be set; treat a stored total as a no-op.
		return
	}
	p.gauge(key).Set(float64(value))
}

// Registry exposes the underlying registry for additional collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) counter(key string) prometheus.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if counter, ok := p.counters[key]; ok {
		return counter
	}
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      sanitizeMetricName(key),
		Help:      "Counter " + key + ".",
	})
	if err := p.registry.Register(counter); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if c, ok := existing.ExistingCollector.(prometheus.Counter); ok {
				counter = c
			}
		}
	}
	p.counters[key] = counter
	return counter
}

func (p *Prometheus) gauge(key string) prometheus.Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gauge, ok := p.gauges[key]; ok {
		return gauge
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Name:      sanitizeMetricName(key),
		Help:      "Gauge " + key + ".",
	})
	if err := p.registry.Register(gauge); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if g, ok := existing.ExistingCollector.(prometheus.Gauge); ok {
				gauge = g
			}
		}
	}
	p.gauges[key] = gauge
	return gauge
}

func sanitizeMetricName(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
