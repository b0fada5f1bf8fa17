package shift

import (
	"nightshift/server/internal/ward"
	"nightshift/server/logging"
	"nightshift/server/logging/surgery"
	wardlog "nightshift/server/logging/ward"
)

// observer turns ward notifications into published events and shift stats.
type observer struct {
	shift *Shift
}

var _ ward.Observer = (*observer)(nil)

func (o *observer) ProblemStarted(tick uint64, patient *ward.Patient, organ *ward.Organ) {
	s := o.shift
	wardlog.ProblemStarted(s.ctx, s.pub, tick, patientRef(patient), wardlog.ProblemStartedPayload{
		Organ:       organ.ID(),
		OrganType:   organ.Type().String(),
		DecayMillis: organ.DecayTotal().Milliseconds(),
	}, nil)
}

func (o *observer) OrganDied(tick uint64, organ *ward.Organ) {
	s := o.shift
	wardlog.OrganDied(s.ctx, s.pub, tick, organRef(organ), wardlog.OrganDiedPayload{
		OrganType: organ.Type().String(),
		Location:  organ.Location().Kind.String(),
	}, nil)
}

func (o *observer) PatientDied(tick uint64, bed *ward.Bed, patient *ward.Patient) {
	s := o.shift
	s.stats.Died++
	if organ := s.selectedOrgan; organ != nil && organ.Location().Patient == patient {
		s.deselectAll()
	}
	wardlog.PatientDied(s.ctx, s.pub, tick, patientRef(patient), wardlog.PatientDiedPayload{
		Bed: bed.ID(),
	}, nil)
}

func (o *observer) OrganExtracted(tick uint64, doctor *ward.Doctor, organ *ward.Organ, from ward.Target) {
	s := o.shift
	surgery.OrganExtracted(s.ctx, s.pub, tick, doctorRef(doctor), []logging.EntityRef{organRef(organ)}, transfer(organ, from), nil)
}

func (o *observer) OrganInserted(tick uint64, doctor *ward.Doctor, organ *ward.Organ, into ward.Target) {
	s := o.shift
	if into.Kind() == ward.TargetPatient {
		s.stats.Transplanted++
	}
	surgery.OrganInserted(s.ctx, s.pub, tick, doctorRef(doctor), []logging.EntityRef{organRef(organ)}, transfer(organ, into), nil)
}

func (o *observer) TaskAborted(tick uint64, doctor *ward.Doctor, reason ward.AbortReason) {
	s := o.shift
	surgery.TaskAborted(s.ctx, s.pub, tick, doctorRef(doctor), surgery.TaskAbortedPayload{Reason: string(reason)}, nil)
}

func (o *observer) RelocationFailed(tick uint64, doctor *ward.Doctor, organ *ward.Organ, err error) {
	s := o.shift
	surgery.RelocationFailed(s.ctx, s.pub, tick, doctorRef(doctor), surgery.RelocationFailedPayload{
		Organ: organ.ID(),
		Error: err.Error(),
	}, nil)
}

func (o *observer) DoctorGround(tick uint64, doctor *ward.Doctor, grinder *ward.Grinder) {
	s := o.shift
	s.stats.Sacrificed++
	if s.selectedDoctor == doctor {
		s.deselectAll()
	}
	surgery.DoctorGround(s.ctx, s.pub, tick, doctorRef(doctor), []logging.EntityRef{
		logging.Ref(logging.EntityKindFixture, grinder.ID()),
	}, nil)
}

func (o *observer) OrgansSpawned(tick uint64, grinder *ward.Grinder, organs []*ward.Organ) {
	s := o.shift
	kinds := make([]string, 0, len(organs))
	targets := make([]logging.EntityRef, 0, len(organs))
	for _, organ := range organs {
		kinds = append(kinds, organ.Type().String())
		targets = append(targets, organRef(organ))
	}
	surgery.OrgansSpawned(s.ctx, s.pub, tick, logging.Ref(logging.EntityKindFixture, grinder.ID()), targets, surgery.OrgansSpawnedPayload{
		OrganTypes: kinds,
	}, nil)
}

func transfer(organ *ward.Organ, container ward.Target) surgery.TransferPayload {
	return surgery.TransferPayload{
		Organ:     organ.ID(),
		OrganType: organ.Type().String(),
		Container: container.ID(),
		Dead:      organ.IsDead(),
	}
}
