package ward

import (
	"testing"
	"time"
)

// scriptedRand replays queued values and falls back to fixed defaults once
// the queue is empty. The Float64 default of 0.99 keeps rolls such as "easy
// patient" or "missing organ" from firing unless a test asks for them.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	value := r.floats[0]
	r.floats = r.floats[1:]
	return value
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 || n <= 0 {
		return 0
	}
	value := r.ints[0] % n
	r.ints = r.ints[1:]
	return value
}

type abortRecord struct {
	doctor string
	reason AbortReason
}

type recordingObserver struct {
	NopObserver

	problems      []string
	organDeaths   []string
	patientDeaths []string
	extracted     []string
	inserted      []string
	aborted       []abortRecord
	relocations   []error
	ground        []string
	spawned       [][]*Organ
}

func (o *recordingObserver) ProblemStarted(_ uint64, _ *Patient, organ *Organ) {
	o.problems = append(o.problems, organ.ID())
}

func (o *recordingObserver) OrganDied(_ uint64, organ *Organ) {
	o.organDeaths = append(o.organDeaths, organ.ID())
}

func (o *recordingObserver) PatientDied(_ uint64, _ *Bed, patient *Patient) {
	o.patientDeaths = append(o.patientDeaths, patient.ID())
}

func (o *recordingObserver) OrganExtracted(_ uint64, _ *Doctor, organ *Organ, _ Target) {
	o.extracted = append(o.extracted, organ.ID())
}

func (o *recordingObserver) OrganInserted(_ uint64, _ *Doctor, organ *Organ, _ Target) {
	o.inserted = append(o.inserted, organ.ID())
}

func (o *recordingObserver) TaskAborted(_ uint64, doctor *Doctor, reason AbortReason) {
	o.aborted = append(o.aborted, abortRecord{doctor: doctor.ID(), reason: reason})
}

func (o *recordingObserver) RelocationFailed(_ uint64, _ *Doctor, _ *Organ, err error) {
	o.relocations = append(o.relocations, err)
}

func (o *recordingObserver) DoctorGround(_ uint64, doctor *Doctor, _ *Grinder) {
	o.ground = append(o.ground, doctor.ID())
}

func (o *recordingObserver) OrgansSpawned(_ uint64, _ *Grinder, organs []*Organ) {
	o.spawned = append(o.spawned, organs)
}

const testDelta = 100 * time.Millisecond

func newTestEnv(t *testing.T) (*Env, *scriptedRand) {
	t.Helper()
	rng := &scriptedRand{}
	return NewEnv(DefaultConfig(), rng, nil), rng
}

func admitPatient(t *testing.T, env *Env, bed *Bed) *Patient {
	t.Helper()
	patient, err := bed.GeneratePatient(0)
	if err != nil {
		t.Fatalf("generate patient: %v", err)
	}
	for _, kind := range OrganTypes {
		if patient.Organ(kind) == nil {
			t.Fatalf("expected %s slot to be filled", kind)
		}
	}
	return patient
}

func giveOrgan(t *testing.T, env *Env, doctor *Doctor, kind OrganType) *Organ {
	t.Helper()
	organ := NewOrgan(env, env.IDs.NextID("organ"), kind)
	if err := organ.AttachToContainer(CarriedBy(doctor)); err != nil {
		t.Fatalf("attach organ to doctor: %v", err)
	}
	return organ
}

// tickUntil steps every doctor until done reports true or the budget runs out.
func tickUntil(t *testing.T, frame Frame, done func() bool, doctors ...*Doctor) int {
	t.Helper()
	for i := 0; i < 5000; i++ {
		if done() {
			return i
		}
		frame.Tick++
		for _, doctor := range doctors {
			doctor.Update(frame)
		}
	}
	t.Fatalf("condition not reached within tick budget")
	return 0
}
