package surgery

import (
	"context"

	"nightshift/server/logging"
)

const (
	// EventOrganExtracted is emitted when a doctor takes an organ from a patient or picks a loose one up.
	EventOrganExtracted logging.EventType = "surgery.organ_extracted"
	// EventOrganInserted is emitted when a doctor hands its organ to a patient or a sink.
	EventOrganInserted logging.EventType = "surgery.organ_inserted"
	// EventTaskAborted is emitted when a doctor drops the rest of its task.
	EventTaskAborted logging.EventType = "surgery.task_aborted"
	// EventRelocationFailed is emitted when an organ hand-off broke an ownership invariant.
	EventRelocationFailed logging.EventType = "surgery.relocation_failed"
	// EventDoctorGround is emitted when a doctor walks into the grinder.
	EventDoctorGround logging.EventType = "surgery.doctor_ground"
	// EventOrgansSpawned is emitted when the grinder ejects replacement organs.
	EventOrgansSpawned logging.EventType = "surgery.organs_spawned"
)

// TransferPayload describes an organ hand-off.
type TransferPayload struct {
	Organ     string `json:"organ"`
	OrganType string `json:"organType"`
	Container string `json:"container"`
	Dead      bool   `json:"dead,omitempty"`
}

// TaskAbortedPayload captures why a task was abandoned.
type TaskAbortedPayload struct {
	Reason string `json:"reason"`
}

// RelocationFailedPayload carries the rejected hand-off.
type RelocationFailedPayload struct {
	Organ string `json:"organ"`
	Error string `json:"error"`
}

// OrgansSpawnedPayload lists the ejected organ types.
type OrgansSpawnedPayload struct {
	OrganTypes []string `json:"organTypes"`
}

// OrganExtracted publishes a successful extraction.
func OrganExtracted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload TransferPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventOrganExtracted,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySurgery,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// OrganInserted publishes a successful insertion.
func OrganInserted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload TransferPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventOrganInserted,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySurgery,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// TaskAborted publishes a warning for an abandoned task.
func TaskAborted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TaskAbortedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTaskAborted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySurgery,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// RelocationFailed publishes an error for a broken ownership invariant.
func RelocationFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RelocationFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRelocationFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategorySurgery,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// DoctorGround publishes a doctor sacrifice.
func DoctorGround(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventDoctorGround,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySurgery,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// OrgansSpawned publishes the grinder output.
func OrgansSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload OrgansSpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventOrgansSpawned,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySurgery,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
