package shift

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"nightshift/server/internal/ward"
	"nightshift/server/logging"
	"nightshift/server/logging/lifecycle"
	wardlog "nightshift/server/logging/ward"
)

// Shift is the level controller: it owns every ward entity, spawns doctors,
// patients and organs on their timers, runs the clock and routes player
// clicks into doctor assignments.
//
// A Shift is not safe for concurrent use. The hub drives it from the
// simulation goroutine and guards snapshot reads with its own lock.
type Shift struct {
	id  string
	cfg Config
	env *ward.Env
	rng *rand.Rand
	pub logging.Publisher
	ctx context.Context

	tick    uint64
	elapsed time.Duration

	beds      []*ward.Bed
	trashCans []*ward.TrashCan
	grinder   *ward.Grinder
	doctors   []*ward.Doctor
	loose     []*ward.Organ

	selectedDoctor *ward.Doctor
	selectedOrgan  *ward.Organ
	reaction       Reaction

	nextDoctor  time.Duration
	nextPatient time.Duration
	clock       Clock
	stats       Stats
	paused      bool
	over        bool

	observer *observer
}

// New builds a shift from cfg and seeds it: one patient admitted with the
// initial missing-organ probability and the initial loose organs.
func New(cfg Config, pub logging.Publisher) (*Shift, error) {
	cfg = cfg.Normalized()
	if pub == nil {
		pub = logging.NopPublisher()
	}
	rng := NewDeterministicRNG(cfg.Seed, "shift")
	s := &Shift{
		id:          uuid.NewString(),
		cfg:         cfg,
		rng:         rng,
		ctx:         context.Background(),
		nextDoctor:  cfg.FirstDoctorDelay,
		nextPatient: cfg.PatientSpawnInterval,
		clock:       Clock{Hour: cfg.StartHour},
	}
	s.pub = logging.WithFields(pub, map[string]any{"shift": s.id})
	s.env = ward.NewEnv(cfg.Ward, rng, ward.NewSequence())
	s.observer = &observer{shift: s}

	for slot := 0; slot < cfg.Beds; slot++ {
		bed := ward.NewBed(s.env, slot, cfg.BedPosition(slot))
		bed.OnOrganClick(s.onOrganClick)
		s.beds = append(s.beds, bed)
	}
	for _, pos := range cfg.TrashCans {
		s.trashCans = append(s.trashCans, ward.NewTrashCan(s.env, s.env.IDs.NextID("trashcan"), pos))
	}
	s.grinder = ward.NewGrinder(s.env, s.env.IDs.NextID("grinder"), cfg.Grinder)
	s.grinder.OnSpawn(s.addLooseOrgan)

	lifecycle.ShiftStarted(s.ctx, s.pub, 0, s.ref(), lifecycle.ShiftStartedPayload{
		Seed:               cfg.Seed,
		Beds:               cfg.Beds,
		MissingOrganPolicy: string(s.env.Config.MissingOrganPolicy),
	}, nil)

	if _, err := s.spawnPatient(cfg.InitialMissingOrganProb); err != nil {
		return nil, fmt.Errorf("seed shift: %w", err)
	}
	s.spawnOrgans(cfg.InitialOrgans)
	return s, nil
}

func (s *Shift) ID() string        { return s.id }
func (s *Shift) Config() Config    { return s.cfg }
func (s *Shift) Tick() uint64      { return s.tick }
func (s *Shift) Clock() Clock      { return s.clock }
func (s *Shift) Stats() Stats      { return s.stats }
func (s *Shift) Paused() bool      { return s.paused }
func (s *Shift) Over() bool        { return s.over }
func (s *Shift) Beds() []*ward.Bed { return s.beds }

func (s *Shift) Doctors() []*ward.Doctor {
	return append([]*ward.Doctor(nil), s.doctors...)
}

func (s *Shift) LooseOrgans() []*ward.Organ {
	return append([]*ward.Organ(nil), s.loose...)
}

func (s *Shift) TrashCans() []*ward.TrashCan { return s.trashCans }
func (s *Shift) Grinder() *ward.Grinder      { return s.grinder }

// GrinderAvailable reports whether the grinder has moved into the ward.
func (s *Shift) GrinderAvailable() bool {
	return s.elapsed >= s.cfg.GrinderAppearTime
}

// SetPaused toggles the global pause flag. While paused every entity update
// and every shift timer is frozen and clicks are ignored.
func (s *Shift) SetPaused(paused bool) {
	s.paused = paused
}

// Step advances the shift by one tick of delta.
func (s *Shift) Step(delta time.Duration) {
	if s.over {
		return
	}
	s.tick++
	frame := ward.Frame{Tick: s.tick, Delta: delta, Paused: s.paused, Observer: s.observer}
	if frame.Paused {
		return
	}
	s.elapsed += delta

	s.nextDoctor -= delta
	if s.nextDoctor <= 0 {
		s.spawnDoctor()
		s.nextDoctor = s.cfg.DoctorSpawnInterval
	}
	s.nextPatient -= delta
	if s.nextPatient <= 0 {
		if _, err := s.spawnPatient(s.cfg.MissingOrganProb); err != nil {
			s.logf("spawn patient: %v", err)
		}
		s.nextPatient = s.cfg.PatientSpawnInterval
	}

	for _, doctor := range s.doctors {
		doctor.Update(frame)
	}
	for _, bed := range s.beds {
		if patient := bed.Patient(); patient != nil {
			patient.Update(frame)
		}
	}
	s.grinder.Update(frame)
	s.prune()

	if s.clock.advance(delta, s.cfg.ClockMinutesPerSecond, s.cfg.StartHour) {
		s.end()
	}
}

func (s *Shift) end() {
	s.over = true
	s.deselectAll()
	lifecycle.ShiftEnded(s.ctx, s.pub, s.tick, s.ref(), lifecycle.ShiftEndedPayload{
		Died:         s.stats.Died,
		Sacrificed:   s.stats.Sacrificed,
		Transplanted: s.stats.Transplanted,
	}, nil)
}

func (s *Shift) spawnDoctor() *ward.Doctor {
	home := ward.Vec2{X: s.cfg.DoctorHomeX.sample(s.rng), Y: s.cfg.DoctorLaneY.sample(s.rng)}
	spawn := ward.Vec2{X: s.cfg.DoctorSpawnX, Y: home.Y}
	doctor := ward.NewDoctor(s.env, s.env.IDs.NextID("doctor"), spawn, home)
	doctor.SetClickHandler(s.onDoctorClick)
	s.doctors = append(s.doctors, doctor)
	lifecycle.DoctorSpawned(s.ctx, s.pub, s.tick, doctorRef(doctor), lifecycle.DoctorSpawnedPayload{
		SpawnX: spawn.X,
		SpawnY: spawn.Y,
		HomeX:  home.X,
		HomeY:  home.Y,
	}, nil)
	return doctor
}

// spawnPatient admits a patient into a random empty bed. A full ward is not
// an error; it yields a nil patient.
func (s *Shift) spawnPatient(missingOrganProb float64) (*ward.Patient, error) {
	for _, index := range s.rng.Perm(len(s.beds)) {
		bed := s.beds[index]
		if bed.HasPatient() {
			continue
		}
		patient, err := bed.GeneratePatient(missingOrganProb)
		if err != nil {
			return nil, err
		}
		var missing []string
		for _, kind := range ward.OrganTypes {
			if patient.Organ(kind) == nil {
				missing = append(missing, kind.String())
			}
		}
		wardlog.PatientAdmitted(s.ctx, s.pub, s.tick, patientRef(patient), wardlog.PatientAdmittedPayload{
			Bed:        bed.ID(),
			Difficulty: patient.Difficulty().String(),
			Missing:    missing,
		}, nil)
		return patient, nil
	}
	return nil, nil
}

func (s *Shift) spawnOrgans(count int) {
	for i := 0; i < count; i++ {
		kind := ward.OrganTypes[s.rng.Intn(len(ward.OrganTypes))]
		organ := ward.NewOrgan(s.env, s.env.IDs.NextID("organ"), kind)
		organ.SetPosition(ward.Vec2{
			X: s.cfg.OrganScatterX.sample(s.rng),
			Y: s.cfg.OrganScatterY.sample(s.rng),
		})
		s.addLooseOrgan(organ)
	}
}

func (s *Shift) addLooseOrgan(organ *ward.Organ) {
	organ.SetClickHandler(s.onFreeOrganClick)
	s.loose = append(s.loose, organ)
}

// prune forgets destroyed doctors and organs that are no longer loose, and
// drops a selection that became stale during the tick.
func (s *Shift) prune() {
	doctors := s.doctors[:0]
	for _, doctor := range s.doctors {
		if !doctor.Destroyed() {
			doctors = append(doctors, doctor)
		}
	}
	clear(s.doctors[len(doctors):])
	s.doctors = doctors

	loose := s.loose[:0]
	for _, organ := range s.loose {
		if organ.IsLoose() {
			loose = append(loose, organ)
		}
	}
	clear(s.loose[len(loose):])
	s.loose = loose

	if d := s.selectedDoctor; d != nil && d.Dead() {
		s.deselectAll()
	}
	if o := s.selectedOrgan; o != nil && !o.IsLoose() && o.Location().Kind != ward.LocationInBed {
		s.deselectAll()
	}
}

func (s *Shift) findDoctor(id string) *ward.Doctor {
	for _, doctor := range s.doctors {
		if doctor.ID() == id {
			return doctor
		}
	}
	return nil
}

func (s *Shift) findOrgan(id string) *ward.Organ {
	for _, organ := range s.loose {
		if organ.ID() == id {
			return organ
		}
	}
	for _, bed := range s.beds {
		patient := bed.Patient()
		if patient == nil {
			continue
		}
		for _, organ := range patient.Organs() {
			if organ != nil && organ.ID() == id {
				return organ
			}
		}
	}
	return nil
}

func (s *Shift) findBed(id string) *ward.Bed {
	for _, bed := range s.beds {
		if bed.ID() == id {
			return bed
		}
	}
	return nil
}

func (s *Shift) findTrashCan(id string) *ward.TrashCan {
	for _, trash := range s.trashCans {
		if trash.ID() == id {
			return trash
		}
	}
	return nil
}

func (s *Shift) ref() logging.EntityRef {
	return logging.Ref(logging.EntityKindShift, s.id)
}

func (s *Shift) logf(format string, args ...any) {
	s.pub.Publish(s.ctx, logging.Event{
		Type:     "shift.error",
		Tick:     s.tick,
		Actor:    s.ref(),
		Severity: logging.SeverityError,
		Category: logging.CategoryWard,
		Payload:  map[string]string{"message": fmt.Sprintf(format, args...)},
	})
}

func doctorRef(d *ward.Doctor) logging.EntityRef {
	return logging.Ref(logging.EntityKindDoctor, d.ID())
}

func patientRef(p *ward.Patient) logging.EntityRef {
	return logging.Ref(logging.EntityKindPatient, p.ID())
}

func organRef(o *ward.Organ) logging.EntityRef {
	return logging.Ref(logging.EntityKindOrgan, o.ID())
}
