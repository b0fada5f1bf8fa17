package ward

import (
	"context"

	"nightshift/server/logging"
)

const (
	// EventPatientAdmitted is emitted when a bed receives a new patient.
	EventPatientAdmitted logging.EventType = "ward.patient_admitted"
	// EventProblemStarted is emitted when a healthy organ starts decaying.
	EventProblemStarted logging.EventType = "ward.problem_started"
	// EventOrganDied is emitted when an organ's decay countdown runs out.
	EventOrganDied logging.EventType = "ward.organ_died"
	// EventPatientDied is emitted when every present organ of a patient is dead.
	EventPatientDied logging.EventType = "ward.patient_died"
)

// PatientAdmittedPayload describes a freshly generated patient.
type PatientAdmittedPayload struct {
	Bed        string   `json:"bed"`
	Difficulty string   `json:"difficulty"`
	Missing    []string `json:"missing,omitempty"`
}

// ProblemStartedPayload identifies the organ that started decaying.
type ProblemStartedPayload struct {
	Organ       string `json:"organ"`
	OrganType   string `json:"organType"`
	DecayMillis int64  `json:"decayMillis"`
}

// OrganDiedPayload identifies a dead organ and where it was.
type OrganDiedPayload struct {
	OrganType string `json:"organType"`
	Location  string `json:"location"`
}

// PatientDiedPayload describes the vacated bed.
type PatientDiedPayload struct {
	Bed string `json:"bed"`
}

// PatientAdmitted publishes a patient admission event.
func PatientAdmitted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PatientAdmittedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPatientAdmitted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryWard,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ProblemStarted publishes a warning when an organ starts to decay.
func ProblemStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProblemStartedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventProblemStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryWard,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// OrganDied publishes an organ death.
func OrganDied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload OrganDiedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventOrganDied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryWard,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// PatientDied publishes a patient death.
func PatientDied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PatientDiedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPatientDied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryWard,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
