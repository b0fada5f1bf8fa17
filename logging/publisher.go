package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

var severityNames = [...]string{"debug", "info", "warn", "error"}

func (s Severity) String() string {
	if s < SeverityDebug || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// ParseSeverity resolves a severity name as used by LOG_MIN_SEVERITY.
func ParseSeverity(name string) (Severity, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "warning" {
		normalized = "warn"
	}
	for i, candidate := range severityNames {
		if candidate == normalized {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", name)
}

type EntityKind string

const (
	EntityKindUnknown    EntityKind = "unknown"
	EntityKindDoctor     EntityKind = "doctor"
	EntityKindPatient    EntityKind = "patient"
	EntityKindOrgan      EntityKind = "organ"
	EntityKindBed        EntityKind = "bed"
	EntityKindFixture    EntityKind = "fixture"
	EntityKindShift      EntityKind = "shift"
	EntityKindSubscriber EntityKind = "subscriber"
)

type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Actor     EntityRef      `json:"actor"`
	Targets   []EntityRef    `json:"targets,omitempty"`
	Severity  Severity       `json:"severity"`
	Category  string         `json:"category,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
	CommandID string         `json:"commandId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Ref is shorthand for building an EntityRef.
func Ref(kind EntityKind, id string) EntityRef {
	return EntityRef{ID: id, Kind: kind}
}

const (
	CategoryWard       = "ward"
	CategorySurgery    = "surgery"
	CategoryLifecycle  = "lifecycle"
	CategorySimulation = "simulation"
	CategoryNetwork    = "network"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	p.next.Publish(ctx, mergeFields(event, p.fields))
}

// mergeFields copies fields into the event's Extra without overriding keys
// the event already carries.
func mergeFields(event Event, fields map[string]any) Event {
	if len(fields) == 0 {
		return event
	}
	event = cloneEvent(event)
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

func cloneEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}

// WithFields decorates p so every published event carries fields in Extra.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

// CloneEvent returns a copy of event whose Targets and Extra can be mutated
// independently. Sinks that retain events use it.
func CloneEvent(event Event) Event {
	return cloneEvent(event)
}
