package ward

import (
	"errors"
	"testing"
	"time"
)

func killOrgan(t *testing.T, organ *Organ) {
	t.Helper()
	organ.StartDecay(time.Millisecond)
	organ.Update(Frame{Delta: time.Millisecond})
	if !organ.IsDead() {
		t.Fatalf("expected %s to be dead", organ.ID())
	}
}

func TestPatientSlotUniquenessAndConservation(t *testing.T) {
	env, _ := newTestEnv(t)
	p1 := admitPatient(t, env, NewBed(env, 0, Vec2{X: 50, Y: 100}))
	p2 := admitPatient(t, env, NewBed(env, 1, Vec2{X: 110, Y: 100}))

	p2.PopOrgan(OrganLiver).Destroy()

	organ := p1.PopOrgan(OrganLiver)
	if organ == nil || !organ.IsLoose() {
		t.Fatalf("expected popped organ to be loose")
	}
	if p1.Organ(OrganLiver) != nil {
		t.Fatalf("expected source slot to be cleared")
	}
	if !p2.SetOrgan(organ) {
		t.Fatalf("expected insertion into an empty slot to succeed")
	}
	if p2.Organ(OrganLiver) != organ || organ.Location().Patient != p2 {
		t.Fatalf("expected organ to live in exactly one slot of p2")
	}
	if p1.Organ(OrganLiver) != nil {
		t.Fatalf("expected organ to be unreachable from p1")
	}

	spare := NewOrgan(env, "organ-spare", OrganLiver)
	if p2.SetOrgan(spare) {
		t.Fatalf("expected insertion into an occupied slot to fail")
	}
	if !spare.IsLoose() || spare.Destroyed() {
		t.Fatalf("expected rejected organ to stay untouched")
	}
	if p2.Organ(OrganLiver) != organ {
		t.Fatalf("expected occupied slot to keep its organ")
	}
}

func TestPatientPopEmptySlotReturnsNil(t *testing.T) {
	env, _ := newTestEnv(t)
	patient := admitPatient(t, env, NewBed(env, 0, Vec2{X: 50, Y: 100}))
	patient.PopOrgan(OrganNephro)
	if organ := patient.PopOrgan(OrganNephro); organ != nil {
		t.Fatalf("expected nil from an empty slot, got %s", organ.ID())
	}
}

func TestPatientDeathDetection(t *testing.T) {
	env, _ := newTestEnv(t)

	dead := admitPatient(t, env, NewBed(env, 0, Vec2{X: 50, Y: 100}))
	dead.PopOrgan(OrganLiver).Destroy()
	killOrgan(t, dead.Organ(OrganCranium))
	killOrgan(t, dead.Organ(OrganNephro))
	if !dead.IsDead() {
		t.Fatalf("expected patient with only dead organs to be dead")
	}

	alive := admitPatient(t, env, NewBed(env, 1, Vec2{X: 110, Y: 100}))
	alive.PopOrgan(OrganLiver).Destroy()
	killOrgan(t, alive.Organ(OrganNephro))
	if alive.IsDead() {
		t.Fatalf("expected patient with a living cranium to be alive")
	}
}

func TestPatientProblemGeneration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HardProblemInterval = Interval{Min: time.Second, Max: time.Second}
	rng := &scriptedRand{ints: []int{1}}
	env := NewEnv(cfg, rng, nil)
	observer := &recordingObserver{}
	patient := admitPatient(t, env, NewBed(env, 0, Vec2{X: 50, Y: 100}))

	patient.Update(Frame{Delta: 500 * time.Millisecond, Observer: observer})
	if len(observer.problems) != 0 {
		t.Fatalf("expected no problem before the interval elapsed")
	}

	patient.Update(Frame{Delta: 500 * time.Millisecond, Observer: observer})
	if len(observer.problems) != 1 {
		t.Fatalf("expected exactly one problem, got %d", len(observer.problems))
	}
	liver := patient.Organ(OrganLiver)
	if observer.problems[0] != liver.ID() || !liver.HasProblem() {
		t.Fatalf("expected the scripted liver to start decaying")
	}
	if liver.DecayTotal() != DefaultOrganDecay {
		t.Fatalf("expected full decay countdown, got %v", liver.DecayTotal())
	}
	if patient.Organ(OrganCranium).HasProblem() || patient.Organ(OrganNephro).HasProblem() {
		t.Fatalf("expected other organs to stay healthy")
	}
	if got := patient.NextProblemIn(); got != time.Second {
		t.Fatalf("expected next problem rescheduled to 1s, got %v", got)
	}
}

func TestPatientProblemSkipsTroubledOrgans(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HardProblemInterval = Interval{Min: time.Second, Max: time.Second}
	env := NewEnv(cfg, &scriptedRand{}, nil)
	observer := &recordingObserver{}
	patient := admitPatient(t, env, NewBed(env, 0, Vec2{X: 50, Y: 100}))
	patient.PopOrgan(OrganCranium).Destroy()
	patient.PopOrgan(OrganNephro).Destroy()
	patient.Organ(OrganLiver).StartDecay(time.Hour)

	patient.Update(Frame{Delta: time.Second, Observer: observer})
	if len(observer.problems) != 0 {
		t.Fatalf("expected no eligible organ, got problems %v", observer.problems)
	}
	if patient.NextProblemIn() > 0 {
		t.Fatalf("expected problem timer to stay elapsed until an organ is eligible")
	}
}

func TestPatientSimultaneousDeathFiresOnce(t *testing.T) {
	env, _ := newTestEnv(t)
	observer := &recordingObserver{}
	bed := NewBed(env, 0, Vec2{X: 50, Y: 100})
	var vacated int
	bed.OnVacated(func(*Bed) { vacated++ })
	patient := admitPatient(t, env, bed)
	organs := patient.Organs()
	for _, organ := range organs {
		organ.StartDecay(50 * time.Millisecond)
	}

	frame := Frame{Tick: 1, Delta: testDelta, Observer: observer}
	patient.Update(frame)
	patient.Update(frame)

	if len(observer.organDeaths) != 3 {
		t.Fatalf("expected three organ deaths, got %d", len(observer.organDeaths))
	}
	if len(observer.patientDeaths) != 1 || vacated != 1 {
		t.Fatalf("expected onPatientDied exactly once, got %d deaths and %d vacancies", len(observer.patientDeaths), vacated)
	}
	if bed.HasPatient() || bed.Occupied() {
		t.Fatalf("expected bed to be vacant")
	}
	if !patient.Destroyed() {
		t.Fatalf("expected dead patient to be destroyed")
	}
	for _, organ := range organs {
		if !organ.Destroyed() {
			t.Fatalf("expected %s to be destroyed with its patient", organ.ID())
		}
	}

	next, err := bed.GeneratePatient(0)
	if err != nil {
		t.Fatalf("expected vacant bed to accept a patient: %v", err)
	}
	if bed.Patient() != next || next == patient {
		t.Fatalf("expected a fresh patient in the bed")
	}
}

func TestBedRejectsSecondPatient(t *testing.T) {
	env, _ := newTestEnv(t)
	bed := NewBed(env, 0, Vec2{X: 50, Y: 100})
	admitPatient(t, env, bed)
	if _, err := bed.GeneratePatient(0); !errors.Is(err, ErrBedOccupied) {
		t.Fatalf("expected ErrBedOccupied, got %v", err)
	}
}

func TestBedMissingOrganPolicies(t *testing.T) {
	t.Run("at most one", func(t *testing.T) {
		rng := &scriptedRand{floats: []float64{0.99, 0.5, 0.1}, ints: []int{2}}
		env := NewEnv(DefaultConfig(), rng, nil)
		patient, err := NewBed(env, 0, Vec2{}).GeneratePatient(0.5)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if patient.Organ(OrganNephro) != nil {
			t.Fatalf("expected nephro to be missing")
		}
		if patient.Organ(OrganCranium) == nil || patient.Organ(OrganLiver) == nil {
			t.Fatalf("expected at most one missing organ")
		}
	})

	t.Run("per slot", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MissingOrganPolicy = MissingPerSlot
		rng := &scriptedRand{floats: []float64{0.99, 0.5, 0.1, 0.9, 0.2}}
		env := NewEnv(cfg, rng, nil)
		patient, err := NewBed(env, 0, Vec2{}).GeneratePatient(0.5)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if patient.Organ(OrganCranium) != nil || patient.Organ(OrganNephro) != nil {
			t.Fatalf("expected cranium and nephro to be missing")
		}
		if patient.Organ(OrganLiver) == nil {
			t.Fatalf("expected liver to be present")
		}
	})
}

func TestBedCanBeInserted(t *testing.T) {
	env, _ := newTestEnv(t)
	bed := NewBed(env, 0, Vec2{X: 50, Y: 100})
	liver := NewOrgan(env, "organ-x", OrganLiver)
	if bed.CanBeInserted(liver) {
		t.Fatalf("expected empty bed to refuse insertion")
	}
	patient := admitPatient(t, env, bed)
	if bed.CanBeInserted(liver) {
		t.Fatalf("expected occupied slot to refuse insertion")
	}
	patient.PopOrgan(OrganLiver).Destroy()
	if !bed.CanBeInserted(liver) {
		t.Fatalf("expected empty slot to accept insertion")
	}
}

func TestPausedFramePreservesTimers(t *testing.T) {
	env, _ := newTestEnv(t)
	patient := admitPatient(t, env, NewBed(env, 0, Vec2{X: 50, Y: 100}))
	organ := patient.Organ(OrganCranium)
	organ.StartDecay(10 * time.Second)
	nextProblem := patient.NextProblemIn()

	doctor := NewDoctor(env, "doctor-1", Vec2{X: -20, Y: 200}, Vec2{X: 50, Y: 200})
	paused := Frame{Delta: 5 * time.Second, Paused: true}
	patient.Update(paused)
	doctor.Update(paused)

	if remaining, _ := organ.DecayRemaining(); remaining != 10*time.Second {
		t.Fatalf("expected decay to be frozen, got %v", remaining)
	}
	if patient.NextProblemIn() != nextProblem {
		t.Fatalf("expected problem timer to be frozen")
	}
	if doctor.Position() != (Vec2{X: -20, Y: 200}) {
		t.Fatalf("expected doctor to stay put, got %+v", doctor.Position())
	}
}
