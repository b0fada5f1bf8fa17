package shift

import (
	"fmt"
	"math"

	"nightshift/server/internal/ward"
)

// ReactionCode is the outcome of a player click, sent back to the client
// that issued it.
type ReactionCode string

const (
	ReactionNone               ReactionCode = ""
	ReactionSelected           ReactionCode = "selected"
	ReactionDispatched         ReactionCode = "dispatched"
	ReactionDeselected         ReactionCode = "deselected"
	ReactionBusy               ReactionCode = "busy"
	ReactionSlotTaken          ReactionCode = "slot_taken"
	ReactionGrabOrganFirst     ReactionCode = "grab_organ_first"
	ReactionNotPossible        ReactionCode = "not_possible"
	ReactionNoDoctorAvailable  ReactionCode = "no_doctor_available"
	ReactionSelectFirst        ReactionCode = "select_first"
	ReactionCantPutHere        ReactionCode = "cant_put_here"
	ReactionGrinderUnavailable ReactionCode = "grinder_unavailable"
	ReactionPaused             ReactionCode = "paused"
	ReactionUnknownTarget      ReactionCode = "unknown_target"
)

var reactionHints = map[ReactionCode]string{
	ReactionBusy:              "stop it, i am busy",
	ReactionSlotTaken:         "slot already taken",
	ReactionGrabOrganFirst:    "grab an organ first",
	ReactionNotPossible:       "that's not possible",
	ReactionNoDoctorAvailable: "all doctors are busy",
	ReactionSelectFirst:       "select organ or doctor first",
	ReactionCantPutHere:       "can't put this here",
}

// Reaction reports what a click did. Subject is the clicked entity.
type Reaction struct {
	Code    ReactionCode `json:"code"`
	Subject string       `json:"subject,omitempty"`
	Doctor  string       `json:"doctor,omitempty"`
	Hint    string       `json:"hint,omitempty"`
}

// Rejected reports whether the click was refused.
func (r Reaction) Rejected() bool {
	switch r.Code {
	case ReactionSelected, ReactionDispatched, ReactionDeselected:
		return false
	default:
		return true
	}
}

// ClickKind names the entity class a click landed on.
type ClickKind string

const (
	ClickDoctor     ClickKind = "doctor"
	ClickOrgan      ClickKind = "organ"
	ClickBed        ClickKind = "bed"
	ClickTrashCan   ClickKind = "trashcan"
	ClickGrinder    ClickKind = "grinder"
	ClickBackground ClickKind = "background"
)

// ParseClickKind validates a wire click kind.
func ParseClickKind(raw string) (ClickKind, error) {
	switch kind := ClickKind(raw); kind {
	case ClickDoctor, ClickOrgan, ClickBed, ClickTrashCan, ClickGrinder, ClickBackground:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown click kind %q", raw)
	}
}

// Click routes a player click to the matching handler and returns its
// reaction.
func (s *Shift) Click(kind ClickKind, id string) Reaction {
	if s.over {
		return Reaction{Code: ReactionNotPossible, Subject: id}
	}
	s.reaction = Reaction{}
	handled := false
	switch kind {
	case ClickDoctor:
		if doctor := s.findDoctor(id); doctor != nil {
			handled = doctor.Click()
		}
	case ClickOrgan:
		if organ := s.findOrgan(id); organ != nil {
			handled = organ.Click()
		}
	case ClickBed:
		if bed := s.findBed(id); bed != nil {
			s.onBedClick(bed)
			handled = true
		}
	case ClickTrashCan:
		if trash := s.findTrashCan(id); trash != nil {
			s.onTrashCanClick(trash)
			handled = true
		}
	case ClickGrinder:
		if s.grinder.ID() == id || id == "" {
			s.onGrinderClick(s.grinder)
			handled = true
		}
	case ClickBackground:
		s.deselectAll()
		s.react(ReactionDeselected, "")
		handled = true
	}
	if !handled {
		return Reaction{Code: ReactionUnknownTarget, Subject: id}
	}
	reaction := s.reaction
	if reaction.Subject == "" {
		reaction.Subject = id
	}
	return reaction
}

// SelectedDoctor returns the doctor awaiting an order, if any.
func (s *Shift) SelectedDoctor() *ward.Doctor { return s.selectedDoctor }

// SelectedOrgan returns the organ awaiting a destination, if any.
func (s *Shift) SelectedOrgan() *ward.Organ { return s.selectedOrgan }

func (s *Shift) react(code ReactionCode, subject string) {
	reaction := Reaction{Code: code, Subject: subject, Hint: reactionHints[code]}
	if s.selectedDoctor != nil {
		reaction.Doctor = s.selectedDoctor.ID()
	}
	s.reaction = reaction
}

func (s *Shift) onDoctorClick(doctor *ward.Doctor) {
	if s.paused {
		s.react(ReactionPaused, doctor.ID())
		return
	}
	s.deselectAll()
	if doctor.IsReadyToInsert() || doctor.IsReadyToRemove() {
		s.selectDoctor(doctor)
		s.react(ReactionSelected, doctor.ID())
		return
	}
	s.react(ReactionBusy, doctor.ID())
}

// onOrganClick handles a click on an organ lying in a patient.
func (s *Shift) onOrganClick(patient *ward.Patient, organ *ward.Organ) {
	if s.paused {
		s.react(ReactionPaused, organ.ID())
		return
	}
	switch {
	case s.selectedDoctor != nil && s.selectedOrgan == nil:
		code := ReactionNotPossible
		if s.selectedDoctor.IsReadyToRemove() && s.selectedDoctor.SetRemoveTarget(patient, organ.Type()) {
			code = ReactionDispatched
		}
		s.react(code, organ.ID())
		s.deselectAll()
	case s.selectedDoctor != nil && s.selectedOrgan != nil:
		s.react(ReactionCantPutHere, organ.ID())
		s.deselectAll()
	default:
		s.offerOrgan(organ, organ.Position().X)
	}
}

// onFreeOrganClick handles a click on a loose organ.
func (s *Shift) onFreeOrganClick(organ *ward.Organ) {
	if s.paused {
		s.react(ReactionPaused, organ.ID())
		return
	}
	if s.selectedDoctor != nil {
		code := ReactionNotPossible
		if s.selectedDoctor.IsReadyToRemove() && organ.IsLoose() && s.selectedDoctor.SetTarget(ward.OrganTarget(organ)) {
			code = ReactionDispatched
		}
		s.react(code, organ.ID())
		s.deselectAll()
		return
	}
	s.offerOrgan(organ, organ.Position().X)
}

// offerOrgan pairs the organ with the closest free doctor and waits for the
// destination click.
func (s *Shift) offerOrgan(organ *ward.Organ, x float64) {
	doctor := s.closestAvailableDoctor(x)
	if doctor == nil {
		s.react(ReactionNoDoctorAvailable, organ.ID())
		s.deselectAll()
		return
	}
	s.selectedDoctor = doctor
	s.selectOrgan(organ)
	s.react(ReactionSelected, organ.ID())
}

func (s *Shift) onBedClick(bed *ward.Bed) {
	if s.paused {
		s.react(ReactionPaused, bed.ID())
		return
	}
	defer s.deselectAll()
	doctor, organ := s.selectedDoctor, s.selectedOrgan
	switch {
	case doctor != nil && organ == nil:
		switch {
		case !doctor.IsReadyToInsert():
			s.react(ReactionGrabOrganFirst, bed.ID())
		case !bed.CanBeInserted(doctor.Carried()):
			s.react(ReactionSlotTaken, bed.ID())
		case doctor.SetTarget(ward.PatientTarget(bed.Patient())):
			s.react(ReactionDispatched, bed.ID())
		default:
			s.react(ReactionNotPossible, bed.ID())
		}
	case doctor != nil && organ != nil:
		if !bed.CanBeInserted(organ) {
			s.react(ReactionSlotTaken, bed.ID())
			return
		}
		s.dispatchMove(doctor, organ, ward.PatientTarget(bed.Patient()), bed.ID())
	default:
		s.react(ReactionSelectFirst, bed.ID())
	}
}

func (s *Shift) onTrashCanClick(trash *ward.TrashCan) {
	if s.paused {
		s.react(ReactionPaused, trash.ID())
		return
	}
	defer s.deselectAll()
	doctor, organ := s.selectedDoctor, s.selectedOrgan
	switch {
	case doctor != nil && organ == nil:
		if doctor.IsReadyToInsert() && doctor.SetTarget(ward.TrashCanTarget(trash)) {
			s.react(ReactionDispatched, trash.ID())
			return
		}
		s.react(ReactionNotPossible, trash.ID())
	case doctor != nil && organ != nil:
		s.dispatchMove(doctor, organ, ward.TrashCanTarget(trash), trash.ID())
	default:
		s.react(ReactionGrabOrganFirst, trash.ID())
	}
}

func (s *Shift) onGrinderClick(grinder *ward.Grinder) {
	if s.paused {
		s.react(ReactionPaused, grinder.ID())
		return
	}
	defer s.deselectAll()
	if !s.GrinderAvailable() {
		s.react(ReactionGrinderUnavailable, grinder.ID())
		return
	}
	doctor, organ := s.selectedDoctor, s.selectedOrgan
	switch {
	case doctor != nil && organ == nil:
		if (doctor.IsReadyToRemove() || doctor.IsReadyToInsert()) && doctor.SetTarget(ward.GrinderTarget(grinder)) {
			s.react(ReactionDispatched, grinder.ID())
			return
		}
		s.react(ReactionBusy, grinder.ID())
	case doctor != nil && organ != nil:
		s.dispatchMove(doctor, organ, ward.GrinderTarget(grinder), grinder.ID())
	default:
		s.react(ReactionSelectFirst, grinder.ID())
	}
}

// dispatchMove issues the composite fetch-and-deliver order. An organ still
// lying in a patient is fetched from that patient, a loose one directly.
func (s *Shift) dispatchMove(doctor *ward.Doctor, organ *ward.Organ, destination ward.Target, subject string) {
	source := ward.OrganTarget(organ)
	if loc := organ.Location(); loc.Kind == ward.LocationInBed {
		source = ward.PatientTarget(loc.Patient)
	}
	if doctor.MoveOrgan(source, organ.Type(), destination) {
		s.react(ReactionDispatched, subject)
		return
	}
	s.react(ReactionNotPossible, subject)
}

func (s *Shift) closestAvailableDoctor(x float64) *ward.Doctor {
	var closest *ward.Doctor
	for _, doctor := range s.doctors {
		if !doctor.IsReadyToRemove() {
			continue
		}
		if closest == nil || math.Abs(doctor.Position().X-x) < math.Abs(closest.Position().X-x) {
			closest = doctor
		}
	}
	return closest
}

func (s *Shift) selectDoctor(doctor *ward.Doctor) {
	if s.selectedDoctor != nil {
		s.selectedDoctor.SetSelected(false)
	}
	s.selectedDoctor = doctor
	doctor.SetSelected(true)
}

func (s *Shift) selectOrgan(organ *ward.Organ) {
	if s.selectedOrgan != nil {
		s.selectedOrgan.SetSelected(false)
	}
	s.selectedOrgan = organ
	organ.SetSelected(true)
}

func (s *Shift) deselectAll() {
	if s.selectedDoctor != nil {
		s.selectedDoctor.SetSelected(false)
		s.selectedDoctor = nil
	}
	if s.selectedOrgan != nil {
		s.selectedOrgan.SetSelected(false)
		s.selectedOrgan = nil
	}
}
