package lifecycle

import (
	"context"

	"nightshift/server/logging"
)

const (
	// EventDoctorSpawned is emitted when a doctor walks onto the ward.
	EventDoctorSpawned logging.EventType = "lifecycle.doctor_spawned"
	// EventSubscriberJoined is emitted when a client joins the shift.
	EventSubscriberJoined logging.EventType = "lifecycle.subscriber_joined"
	// EventSubscriberLeft is emitted when a client leaves the shift.
	EventSubscriberLeft logging.EventType = "lifecycle.subscriber_left"
	// EventShiftStarted is emitted when a new shift begins.
	EventShiftStarted logging.EventType = "lifecycle.shift_started"
	// EventShiftEnded is emitted when the clock returns to the start hour.
	EventShiftEnded logging.EventType = "lifecycle.shift_ended"
)

// DoctorSpawnedPayload captures spawn and lane coordinates for a new doctor.
type DoctorSpawnedPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	HomeX  float64 `json:"homeX"`
	HomeY  float64 `json:"homeY"`
}

// SubscriberLeftPayload captures the reason a client left.
type SubscriberLeftPayload struct {
	Reason string `json:"reason"`
}

// ShiftStartedPayload describes the shift configuration.
type ShiftStartedPayload struct {
	Seed               string `json:"seed"`
	Beds               int    `json:"beds"`
	MissingOrganPolicy string `json:"missingOrganPolicy"`
}

// ShiftEndedPayload carries the final statistics.
type ShiftEndedPayload struct {
	Died         int `json:"died"`
	Sacrificed   int `json:"sacrificed"`
	Transplanted int `json:"transplanted"`
}

// DoctorSpawned publishes a doctor spawn event.
func DoctorSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DoctorSpawnedPayload, extra map[string]any) {
	publish(ctx, pub, EventDoctorSpawned, tick, actor, payload, extra)
}

// SubscriberJoined publishes a client join event.
func SubscriberJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, extra map[string]any) {
	publish(ctx, pub, EventSubscriberJoined, tick, actor, nil, extra)
}

// SubscriberLeft publishes a client disconnect event.
func SubscriberLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SubscriberLeftPayload, extra map[string]any) {
	publish(ctx, pub, EventSubscriberLeft, tick, actor, payload, extra)
}

// ShiftStarted publishes the start of a shift.
func ShiftStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ShiftStartedPayload, extra map[string]any) {
	publish(ctx, pub, EventShiftStarted, tick, actor, payload, extra)
}

// ShiftEnded publishes the end of a shift.
func ShiftEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ShiftEndedPayload, extra map[string]any) {
	publish(ctx, pub, EventShiftEnded, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
