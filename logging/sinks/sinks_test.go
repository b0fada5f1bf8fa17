package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"nightshift/server/logging"
)

func TestConsoleSinkFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	err := sink.Write(logging.Event{
		Type:     "surgery.organ_inserted",
		Tick:     12,
		Actor:    logging.Ref(logging.EntityKindDoctor, "doctor-1"),
		Targets:  []logging.EntityRef{logging.Ref(logging.EntityKindPatient, "patient-2")},
		Severity: logging.SeverityWarn,
		Payload:  map[string]string{"organ": "organ-3"},
		Extra:    map[string]any{"b": 2, "a": 1},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	for _, want := range []string{
		"[surgery.organ_inserted]",
		"tick=12",
		"actor=doctor:doctor-1",
		"severity=warn",
		"targets=patient:patient-2",
		`payload={"organ":"organ-3"}`,
		"a=1 b=2",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONSinkBatchesAndFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, logging.JSONConfig{MaxBatch: 2})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := sink.Write(logging.Event{Type: "ward.organ_died", Tick: 1, Time: now, Severity: logging.SeverityWarn}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected first event to stay buffered")
	}
	if err := sink.Write(logging.Event{Type: "ward.patient_died", Tick: 2, Time: now, Severity: logging.SeverityError}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a flushed batch of 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "ward.patient_died" || decoded["severity"] != "error" {
		t.Fatalf("unexpected json event %v", decoded)
	}

	if err := sink.Write(logging.Event{Type: "ward.problem_started", Time: now}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Fatalf("expected close to flush the pending event, got %d lines", got)
	}
}

func TestMemorySinkFiltersByType(t *testing.T) {
	sink := NewMemorySink()
	sink.Write(logging.Event{Type: "a"})
	sink.Write(logging.Event{Type: "b"})
	sink.Write(logging.Event{Type: "a"})
	if got := len(sink.EventsOfType("a")); got != 2 {
		t.Fatalf("expected 2 events of type a, got %d", got)
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestBuildRejectsUnknownSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"console", "carrier-pigeon"}
	if _, err := Build(cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected unknown sink to fail")
	}
	cfg.EnabledSinks = []string{"console", "memory"}
	named, err := Build(cfg, &bytes.Buffer{})
	if err != nil || len(named) != 2 {
		t.Fatalf("expected two sinks, got %d (%v)", len(named), err)
	}
}
