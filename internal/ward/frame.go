package ward

import (
	"fmt"
	"time"
)

// Frame is the simulation context threaded through every per-tick update.
// When Paused is set all entity updates are no-ops and every timer keeps its
// remaining value.
type Frame struct {
	Tick     uint64
	Delta    time.Duration
	Paused   bool
	Observer Observer
}

func (f Frame) observer() Observer {
	if f.Observer == nil {
		return NopObserver{}
	}
	return f.Observer
}

// AbortReason explains why a doctor dropped the remainder of its task.
type AbortReason string

const (
	AbortTargetClaimed     AbortReason = "target_claimed"
	AbortExtractionFailed  AbortReason = "extraction_failed"
	AbortInsertionFailed   AbortReason = "insertion_failed"
	AbortNothingToCarry    AbortReason = "nothing_to_carry"
	AbortRelocationFailure AbortReason = "relocation_failed"
)

// Observer receives state-change notifications from the ward entities. The
// presentation and logging layers attach their side effects here.
type Observer interface {
	ProblemStarted(tick uint64, patient *Patient, organ *Organ)
	OrganDied(tick uint64, organ *Organ)
	PatientDied(tick uint64, bed *Bed, patient *Patient)
	OrganExtracted(tick uint64, doctor *Doctor, organ *Organ, from Target)
	OrganInserted(tick uint64, doctor *Doctor, organ *Organ, into Target)
	TaskAborted(tick uint64, doctor *Doctor, reason AbortReason)
	RelocationFailed(tick uint64, doctor *Doctor, organ *Organ, err error)
	DoctorGround(tick uint64, doctor *Doctor, grinder *Grinder)
	OrgansSpawned(tick uint64, grinder *Grinder, organs []*Organ)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) ProblemStarted(uint64, *Patient, *Organ)         {}
func (NopObserver) OrganDied(uint64, *Organ)                        {}
func (NopObserver) PatientDied(uint64, *Bed, *Patient)              {}
func (NopObserver) OrganExtracted(uint64, *Doctor, *Organ, Target)  {}
func (NopObserver) OrganInserted(uint64, *Doctor, *Organ, Target)   {}
func (NopObserver) TaskAborted(uint64, *Doctor, AbortReason)        {}
func (NopObserver) RelocationFailed(uint64, *Doctor, *Organ, error) {}
func (NopObserver) DoctorGround(uint64, *Doctor, *Grinder)          {}
func (NopObserver) OrgansSpawned(uint64, *Grinder, []*Organ)        {}

// Rand is the subset of *math/rand.Rand the ward relies on.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// IDSource hands out stable entity identifiers.
type IDSource interface {
	NextID(kind string) string
}

// Sequence numbers entities per kind ("organ-1", "organ-2", ...). It is not
// safe for concurrent use; the simulation owns it.
type Sequence struct {
	counters map[string]uint64
}

func NewSequence() *Sequence {
	return &Sequence{counters: make(map[string]uint64)}
}

func (s *Sequence) NextID(kind string) string {
	s.counters[kind]++
	return fmt.Sprintf("%s-%d", kind, s.counters[kind])
}
