package shift

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nightshift/server/internal/ward"
	"nightshift/server/logging"
)

const testStep = 100 * time.Millisecond

type eventLog struct {
	mu     sync.Mutex
	events []logging.Event
}

func (l *eventLog) Publish(_ context.Context, event logging.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, logging.CloneEvent(event))
}

func (l *eventLog) count(eventType logging.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, event := range l.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func newTestShift(t *testing.T, mutate func(*Config)) (*Shift, *eventLog) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	events := &eventLog{}
	s, err := New(cfg, events)
	require.NoError(t, err)
	return s, events
}

func stepUntil(t *testing.T, s *Shift, done func() bool) int {
	t.Helper()
	for i := 1; i <= 5000; i++ {
		s.Step(testStep)
		if done() {
			return i
		}
	}
	t.Fatalf("condition not reached after 5000 ticks")
	return 0
}

// readyDoctor steps until the first doctor has walked to its home lane.
func readyDoctor(t *testing.T, s *Shift) *ward.Doctor {
	t.Helper()
	stepUntil(t, s, func() bool {
		doctors := s.Doctors()
		return len(doctors) > 0 && doctors[0].IsReadyToRemove()
	})
	return s.Doctors()[0]
}

func occupiedBed(t *testing.T, s *Shift) *ward.Bed {
	t.Helper()
	for _, bed := range s.Beds() {
		if bed.HasPatient() {
			return bed
		}
	}
	t.Fatalf("no occupied bed")
	return nil
}

func emptyBed(t *testing.T, s *Shift) *ward.Bed {
	t.Helper()
	for _, bed := range s.Beds() {
		if !bed.HasPatient() {
			return bed
		}
	}
	t.Fatalf("no empty bed")
	return nil
}

func firstOrgan(t *testing.T, patient *ward.Patient) *ward.Organ {
	t.Helper()
	for _, organ := range patient.Organs() {
		if organ != nil {
			return organ
		}
	}
	t.Fatalf("patient %s has no organs", patient.ID())
	return nil
}

func TestNewShiftSeedsWard(t *testing.T) {
	s, events := newTestShift(t, nil)

	require.Len(t, s.Beds(), DefaultBeds)
	require.Len(t, s.TrashCans(), 2)
	require.Empty(t, s.Doctors())
	require.Len(t, s.LooseOrgans(), DefaultInitialOrgans)

	occupied := 0
	for _, bed := range s.Beds() {
		if !bed.HasPatient() {
			continue
		}
		occupied++
		present := 0
		for _, organ := range bed.Patient().Organs() {
			if organ != nil {
				present++
			}
		}
		require.Equal(t, 2, present, "first patient always misses one organ")
	}
	require.Equal(t, 1, occupied)

	cfg := s.Config()
	for _, organ := range s.LooseOrgans() {
		pos := organ.Position()
		require.GreaterOrEqual(t, pos.X, cfg.OrganScatterX.Min)
		require.LessOrEqual(t, pos.X, cfg.OrganScatterX.Max)
		require.GreaterOrEqual(t, pos.Y, cfg.OrganScatterY.Min)
		require.LessOrEqual(t, pos.Y, cfg.OrganScatterY.Max)
	}

	require.Equal(t, 1, events.count("lifecycle.shift_started"))
	require.Equal(t, 1, events.count("ward.patient_admitted"))
	require.Equal(t, s.ID(), events.events[0].Extra["shift"])
}

func TestShiftSpawnsFirstDoctorAfterDelay(t *testing.T) {
	s, events := newTestShift(t, nil)

	for i := 0; i < 4; i++ {
		s.Step(testStep)
	}
	require.Empty(t, s.Doctors())

	s.Step(testStep)
	require.Len(t, s.Doctors(), 1)
	require.Equal(t, 1, events.count("lifecycle.doctor_spawned"))

	doctor := s.Doctors()[0]
	require.Equal(t, doctor.Home().Y, doctor.Position().Y)
	require.Greater(t, doctor.Position().X, s.Config().DoctorSpawnX)
	require.Less(t, doctor.Position().X, doctor.Home().X)
	require.Equal(t, ward.TaskMovingToStart, doctor.Task())
}

func TestShiftSpawnsPatientsOnInterval(t *testing.T) {
	s, _ := newTestShift(t, func(cfg *Config) {
		cfg.PatientSpawnInterval = time.Second
		cfg.Ward.EasyPatientProb = 1
		cfg.Ward.EasyProblemInterval = ward.Interval{Min: time.Hour, Max: time.Hour}
	})

	for i := 0; i < 10; i++ {
		s.Step(testStep)
	}
	occupied := 0
	for _, bed := range s.Beds() {
		if bed.HasPatient() {
			occupied++
		}
	}
	require.Equal(t, 2, occupied)
}

func TestClickWithoutAvailableDoctor(t *testing.T) {
	s, _ := newTestShift(t, nil)
	organ := firstOrgan(t, occupiedBed(t, s).Patient())

	reaction := s.Click(ClickOrgan, organ.ID())
	require.Equal(t, ReactionNoDoctorAvailable, reaction.Code)
	require.True(t, reaction.Rejected())
	require.Nil(t, s.SelectedDoctor())
	require.Nil(t, s.SelectedOrgan())

	reaction = s.Click(ClickBed, occupiedBed(t, s).ID())
	require.Equal(t, ReactionSelectFirst, reaction.Code)

	reaction = s.Click(ClickTrashCan, s.TrashCans()[0].ID())
	require.Equal(t, ReactionGrabOrganFirst, reaction.Code)

	reaction = s.Click(ClickDoctor, "doctor-99")
	require.Equal(t, ReactionUnknownTarget, reaction.Code)
}

func TestDoctorSelectionAndBusyDoctor(t *testing.T) {
	s, _ := newTestShift(t, nil)
	stepUntil(t, s, func() bool { return len(s.Doctors()) == 1 })
	doctor := s.Doctors()[0]

	reaction := s.Click(ClickDoctor, doctor.ID())
	require.Equal(t, ReactionBusy, reaction.Code, "walking doctors refuse orders")
	require.False(t, doctor.Selected())

	doctor = readyDoctor(t, s)
	reaction = s.Click(ClickDoctor, doctor.ID())
	require.Equal(t, ReactionSelected, reaction.Code)
	require.True(t, doctor.Selected())
	require.Same(t, doctor, s.SelectedDoctor())

	reaction = s.Click(ClickBackground, "")
	require.Equal(t, ReactionDeselected, reaction.Code)
	require.False(t, doctor.Selected())
	require.Nil(t, s.SelectedDoctor())
}

func TestRemoveAndTransplantBack(t *testing.T) {
	s, events := newTestShift(t, nil)
	doctor := readyDoctor(t, s)
	bed := occupiedBed(t, s)
	patient := bed.Patient()
	organ := firstOrgan(t, patient)

	require.Equal(t, ReactionSelected, s.Click(ClickDoctor, doctor.ID()).Code)
	reaction := s.Click(ClickOrgan, organ.ID())
	require.Equal(t, ReactionDispatched, reaction.Code)
	require.Equal(t, doctor.ID(), reaction.Doctor)
	require.Nil(t, s.SelectedDoctor(), "assignment deselects")

	stepUntil(t, s, doctor.IsReadyToInsert)
	require.Same(t, organ, doctor.Carried())
	require.Nil(t, patient.Organ(organ.Type()))

	require.Equal(t, ReactionSelected, s.Click(ClickDoctor, doctor.ID()).Code)
	require.Equal(t, ReactionSlotTaken, s.Click(ClickBed, emptyBed(t, s).ID()).Code)

	require.Equal(t, ReactionSelected, s.Click(ClickDoctor, doctor.ID()).Code)
	require.Equal(t, ReactionDispatched, s.Click(ClickBed, bed.ID()).Code)

	stepUntil(t, s, doctor.IsReadyToRemove)
	require.Same(t, organ, patient.Organ(organ.Type()))
	require.Equal(t, 1, s.Stats().Transplanted)
	require.Equal(t, 1, events.count("surgery.organ_extracted"))
	require.Equal(t, 1, events.count("surgery.organ_inserted"))
}

func TestOrganFirstSelectionPicksDoctor(t *testing.T) {
	s, _ := newTestShift(t, nil)
	doctor := readyDoctor(t, s)
	organ := s.LooseOrgans()[0]
	loose := len(s.LooseOrgans())

	reaction := s.Click(ClickOrgan, organ.ID())
	require.Equal(t, ReactionSelected, reaction.Code)
	require.Same(t, doctor, s.SelectedDoctor())
	require.False(t, doctor.Selected(), "auto-picked doctor is not highlighted")
	require.True(t, organ.Selected())

	reaction = s.Click(ClickTrashCan, s.TrashCans()[0].ID())
	require.Equal(t, ReactionDispatched, reaction.Code)
	require.False(t, organ.Selected())
	require.True(t, doctor.HasFollowUp())

	stepUntil(t, s, func() bool { return organ.Destroyed() && doctor.IsReadyToRemove() })
	require.Len(t, s.LooseOrgans(), loose-1)
	require.Zero(t, s.Stats().Transplanted)
}

func TestOrganFirstThenOrganIsRejected(t *testing.T) {
	s, _ := newTestShift(t, nil)
	readyDoctor(t, s)
	organ := s.LooseOrgans()[0]
	inPatient := firstOrgan(t, occupiedBed(t, s).Patient())

	require.Equal(t, ReactionSelected, s.Click(ClickOrgan, organ.ID()).Code)
	reaction := s.Click(ClickOrgan, inPatient.ID())
	require.Equal(t, ReactionCantPutHere, reaction.Code)
	require.Nil(t, s.SelectedDoctor())
	require.Nil(t, s.SelectedOrgan())
}

func TestGrinderAvailability(t *testing.T) {
	s, _ := newTestShift(t, nil)
	doctor := readyDoctor(t, s)
	require.False(t, s.GrinderAvailable())

	require.Equal(t, ReactionSelected, s.Click(ClickDoctor, doctor.ID()).Code)
	reaction := s.Click(ClickGrinder, s.Grinder().ID())
	require.Equal(t, ReactionGrinderUnavailable, reaction.Code)
	require.Nil(t, s.SelectedDoctor())
}

func TestGrinderSacrificesDoctor(t *testing.T) {
	s, events := newTestShift(t, func(cfg *Config) {
		cfg.GrinderAppearTime = 0
		cfg.DoctorSpawnInterval = time.Hour
	})
	doctor := readyDoctor(t, s)
	loose := len(s.LooseOrgans())

	require.Equal(t, ReactionSelected, s.Click(ClickDoctor, doctor.ID()).Code)
	require.Equal(t, ReactionDispatched, s.Click(ClickGrinder, s.Grinder().ID()).Code)

	stepUntil(t, s, func() bool { return s.Stats().Sacrificed == 1 })
	require.True(t, doctor.Dead())
	require.Equal(t, ReactionBusy, s.Click(ClickDoctor, doctor.ID()).Code)

	stepUntil(t, s, doctor.Destroyed)
	require.Empty(t, s.Doctors())
	require.Len(t, s.LooseOrgans(), loose+2)
	require.Equal(t, 1, events.count("surgery.doctor_ground"))
	require.Equal(t, 1, events.count("surgery.organs_spawned"))
}

func TestPauseFreezesShift(t *testing.T) {
	s, _ := newTestShift(t, nil)
	stepUntil(t, s, func() bool { return len(s.Doctors()) == 1 })
	doctor := s.Doctors()[0]
	position := doctor.Position()
	clock := s.Clock()

	s.SetPaused(true)
	for i := 0; i < 50; i++ {
		s.Step(testStep)
	}
	require.Equal(t, position, doctor.Position())
	require.Equal(t, clock, s.Clock())
	require.Len(t, s.Doctors(), 1)
	require.Equal(t, ReactionPaused, s.Click(ClickDoctor, doctor.ID()).Code)

	s.SetPaused(false)
	s.Step(testStep)
	require.NotEqual(t, position, doctor.Position())
}

func TestShiftEndsWhenClockWraps(t *testing.T) {
	s, events := newTestShift(t, func(cfg *Config) {
		cfg.ClockMinutesPerSecond = 60
	})

	for i := 0; i < 23; i++ {
		s.Step(time.Second)
	}
	require.False(t, s.Over())

	s.Step(time.Second)
	require.True(t, s.Over())
	require.Equal(t, DefaultStartHour, s.Clock().Hour)
	require.Equal(t, 1, events.count("lifecycle.shift_ended"))

	tick := s.Tick()
	s.Step(time.Second)
	require.Equal(t, tick, s.Tick())
	require.Equal(t, ReactionNotPossible, s.Click(ClickBackground, "").Code)
}

func TestClockLabel(t *testing.T) {
	cases := []struct {
		clock Clock
		want  string
	}{
		{Clock{Hour: 20}, "08:00 pm"},
		{Clock{Hour: 23, Minutes: 44}, "11:30 pm"},
		{Clock{Hour: 24, Minutes: 15}, "12:15 am"},
		{Clock{Hour: 3, Minutes: 59}, "03:45 am"},
		{Clock{Hour: 12}, "12:00 pm"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.clock.Label())
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	s, _ := newTestShift(t, nil)
	doctor := readyDoctor(t, s)
	require.Equal(t, ReactionSelected, s.Click(ClickDoctor, doctor.ID()).Code)

	view := s.Snapshot()
	require.Equal(t, s.ID(), view.ID)
	require.Len(t, view.Beds, DefaultBeds)
	require.Len(t, view.Doctors, 1)
	require.Len(t, view.LooseOrgans, DefaultInitialOrgans)
	require.Equal(t, doctor.ID(), view.SelectedDoctor)
	require.Equal(t, "idle", view.Doctors[0].Task)
	require.True(t, view.Doctors[0].Selected)
	require.False(t, view.Grinder.Available)
	require.Equal(t, string(ward.MissingAtMostOne), view.MissingOrganMode)

	patients := 0
	for _, bed := range view.Beds {
		if bed.Patient != nil {
			patients++
			require.Len(t, bed.Patient.Organs, 2)
		}
	}
	require.Equal(t, 1, patients)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"facing":"right"`)
}

func TestDeterministicSeed(t *testing.T) {
	a, _ := newTestShift(t, nil)
	b, _ := newTestShift(t, nil)
	for i := 0; i < 100; i++ {
		a.Step(testStep)
		b.Step(testStep)
	}
	va, vb := a.Snapshot(), b.Snapshot()
	va.ID, vb.ID = "", ""
	require.Equal(t, va, vb)
}

func TestParseClickKind(t *testing.T) {
	kind, err := ParseClickKind("trashcan")
	require.NoError(t, err)
	require.Equal(t, ClickTrashCan, kind)

	_, err = ParseClickKind("window")
	require.Error(t, err)
}
