package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"nightshift/server/logging"
)

// JSON emits newline-delimited structured events. Writes are buffered and
// flushed every MaxBatch events, on the flush interval and on Close.
type JSON struct {
	mu       sync.Mutex
	writer   *bufio.Writer
	encoder  *json.Encoder
	closer   io.Closer
	maxBatch int
	pending  int
	stop     chan struct{}
	stopOnce sync.Once
}

type jsonEvent struct {
	Type      logging.EventType   `json:"type"`
	Tick      uint64              `json:"tick"`
	Time      string              `json:"time"`
	Severity  string              `json:"severity"`
	Category  string              `json:"category,omitempty"`
	Actor     logging.EntityRef   `json:"actor"`
	Targets   []logging.EntityRef `json:"targets,omitempty"`
	Payload   any                 `json:"payload,omitempty"`
	Extra     map[string]any      `json:"extra,omitempty"`
	TraceID   string              `json:"traceId,omitempty"`
	CommandID string              `json:"commandId,omitempty"`
}

// NewJSON constructs a JSON sink writing to w. If w is also an io.Closer it
// is closed together with the sink.
func NewJSON(w io.Writer, cfg logging.JSONConfig) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:   buf,
		encoder:  json.NewEncoder(buf),
		maxBatch: cfg.MaxBatch,
		stop:     make(chan struct{}),
	}
	if closer, ok := w.(io.Closer); ok {
		sink.closer = closer
	}
	if cfg.FlushInterval > 0 {
		go sink.periodicFlush(cfg.FlushInterval)
	} else if sink.maxBatch <= 0 {
		sink.maxBatch = 1
	}
	return sink
}

// Write satisfies logging.Sink.
func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := jsonEvent{
		Type:      event.Type,
		Tick:      event.Tick,
		Time:      event.Time.Format(time.RFC3339Nano),
		Severity:  event.Severity.String(),
		Category:  event.Category,
		Actor:     event.Actor,
		Targets:   event.Targets,
		Payload:   event.Payload,
		Extra:     event.Extra,
		TraceID:   event.TraceID,
		CommandID: event.CommandID,
	}
	if err := s.encoder.Encode(wire); err != nil {
		return err
	}
	s.pending++
	if s.maxBatch > 0 && s.pending >= s.maxBatch {
		s.pending = 0
		return s.writer.Flush()
	}
	return nil
}

// Close flushes buffers and releases the underlying writer.
func (s *JSON) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.writer.Flush()
	if s.closer != nil {
		if closeErr := s.closer.Close(); err == nil {
			err = closeErr
		}
		s.closer = nil
	}
	return err
}

func (s *JSON) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.pending = 0
			s.writer.Flush()
			s.mu.Unlock()
		}
	}
}
