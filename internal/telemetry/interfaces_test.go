package telemetry

import (
	"bytes"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("hello %s", "world")
		if got := buf.String(); got != "hello world\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
		provider, ok := logger.(interface{ StandardLogger() *log.Logger })
		if !ok || provider.StandardLogger() != base {
			t.Fatalf("expected wrapped logger to expose the standard logger")
		}
	})
}

func TestCounters(t *testing.T) {
	var counters Counters
	counters.Add("test_counter", 2)
	counters.Store("test_counter", 5)
	counters.Add("test_counter", 3)
	counters.Store("queue_depth", 7)

	snapshot := counters.Snapshot()
	if got := snapshot["test_counter"]; got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}
	if got := counters.Load("queue_depth"); got != 7 {
		t.Fatalf("unexpected gauge value: %d", got)
	}
	if keys := counters.Keys(); len(keys) != 2 || keys[0] != "queue_depth" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	nilCounters.Store("ignored", 1)
}

func TestMultiFansOut(t *testing.T) {
	var a, b Counters
	metrics := Multi(&a, nil, &b)
	metrics.Add("ticks_total", 1)
	metrics.Store("subscribers", 3)
	if a.Load("ticks_total") != 1 || b.Load("ticks_total") != 1 {
		t.Fatalf("expected both counters to record the add")
	}
	if a.Load("subscribers") != 3 || b.Load("subscribers") != 3 {
		t.Fatalf("expected both counters to record the store")
	}
}

func TestPrometheusExportsSeries(t *testing.T) {
	metrics := NewPrometheus("nightshift")
	metrics.Add("sim_ticks_total", 3)
	metrics.Store("sim_command_buffer_occupancy", 4)
	metrics.Store("sim_ticks_total", 99)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	if !strings.Contains(text, "nightshift_sim_ticks_total 3") {
		t.Fatalf("expected counter series, got:\n%s", text)
	}
	if !strings.Contains(text, "nightshift_sim_command_buffer_occupancy 4") {
		t.Fatalf("expected gauge series, got:\n%s", text)
	}
}

func TestSanitizeMetricName(t *testing.T) {
	if got := sanitizeMetricName("ws.broadcast-bytes"); got != "ws_broadcast_bytes" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if got := sanitizeMetricName("9lives"); got != "_lives" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
