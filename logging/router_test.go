package logging_test

import (
	"context"
	"testing"
	"time"

	"nightshift/server/logging"
	"nightshift/server/logging/sinks"
)

func TestRouterDeliversToSinks(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	cfg.Fields = map[string]any{"shift": "shift-1"}
	fixed := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	ctx := context.Background()
	router.Publish(ctx, logging.Event{Type: "ward.test", Tick: 3, Severity: logging.SeverityInfo, Extra: map[string]any{"shift": "override"}})
	router.Publish(ctx, logging.Event{Type: "ward.debug", Tick: 4, Severity: logging.SeverityDebug})
	router.Publish(ctx, logging.Event{Tick: 5, Severity: logging.SeverityError})

	closeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := router.Close(closeCtx); err != nil {
		t.Fatalf("close router: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	event := events[0]
	if event.Type != "ward.test" || event.Tick != 3 {
		t.Fatalf("unexpected event %+v", event)
	}
	if !event.Time.Equal(fixed) {
		t.Fatalf("expected router clock timestamp, got %v", event.Time)
	}
	if event.Extra["shift"] != "override" {
		t.Fatalf("expected event fields to win over router fields, got %v", event.Extra["shift"])
	}

	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.FilteredTotal != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	router.Publish(ctx, logging.Event{Type: "ward.late", Severity: logging.SeverityError})
	if got := len(memory.Events()); got != 1 {
		t.Fatalf("expected publish after close to be ignored, got %d events", got)
	}
}

func TestWithFieldsDecoratesEvents(t *testing.T) {
	var captured []logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = append(captured, event)
	})
	pub := logging.WithFields(base, map[string]any{"subscriber": "s-1"})
	original := logging.Event{Type: "network.test"}
	pub.Publish(context.Background(), original)

	if len(captured) != 1 || captured[0].Extra["subscriber"] != "s-1" {
		t.Fatalf("expected decorated event, got %+v", captured)
	}
	if original.Extra != nil {
		t.Fatalf("expected original event to stay untouched")
	}
	if logging.WithFields(nil, nil) == nil {
		t.Fatalf("expected nop publisher for nil input")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		" INFO ":  logging.SeverityInfo,
		"warning": logging.SeverityWarn,
		"error":   logging.SeverityError,
	}
	for input, want := range cases {
		got, err := logging.ParseSeverity(input)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := logging.ParseSeverity("loud"); err == nil {
		t.Fatalf("expected unknown severity to fail")
	}
}

func TestParseSinks(t *testing.T) {
	got := logging.ParseSinks(" console, JSON,,console ")
	if len(got) != 2 || got[0] != "console" || got[1] != "json" {
		t.Fatalf("unexpected sinks %v", got)
	}
}
