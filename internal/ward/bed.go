package ward

import "fmt"

// Bed correlates at most one patient with a fixed position in the ward.
type Bed struct {
	id       string
	slot     int
	position Vec2
	env      *Env

	patient  *Patient
	occupied bool

	onOrganClick func(*Patient, *Organ)
	onVacated    func(*Bed)
}

// NewBed creates an empty bed for slot index slot at position.
func NewBed(env *Env, slot int, position Vec2) *Bed {
	return &Bed{
		id:       fmt.Sprintf("bed-%d", slot),
		slot:     slot,
		position: position,
		env:      env,
	}
}

func (b *Bed) ID() string        { return b.id }
func (b *Bed) Slot() int         { return b.slot }
func (b *Bed) Position() Vec2    { return b.position }
func (b *Bed) Patient() *Patient { return b.patient }
func (b *Bed) HasPatient() bool  { return b.patient != nil }
func (b *Bed) Occupied() bool    { return b.occupied }
func (b *Bed) DoctorPosition() Vec2 {
	return b.position.Add(b.env.Config.BedApproach)
}

// OnOrganClick registers the listener every organ of the bed's patients
// routes its clicks through.
func (b *Bed) OnOrganClick(fn func(*Patient, *Organ)) {
	b.onOrganClick = fn
}

// OnVacated registers the listener fired after a patient died and left.
func (b *Bed) OnVacated(fn func(*Bed)) {
	b.onVacated = fn
}

// GeneratePatient admits a new patient into the empty bed. Organs go missing
// up front according to the configured MissingOrganPolicy, each roll using
// missingOrganProb.
func (b *Bed) GeneratePatient(missingOrganProb float64) (*Patient, error) {
	if b.patient != nil {
		return nil, fmt.Errorf("generate patient in %s: %w", b.id, ErrBedOccupied)
	}
	env := b.env
	difficulty := DifficultyHard
	if env.Rand.Float64() < env.Config.EasyPatientProb {
		difficulty = DifficultyEasy
	}
	patient := newPatient(env, env.IDs.NextID("patient"), b, difficulty)

	missing := b.rollMissing(clampProbability(missingOrganProb))
	for _, kind := range OrganTypes {
		if missing[kind] {
			continue
		}
		organ := NewOrgan(env, env.IDs.NextID("organ"), kind)
		if err := organ.AttachToContainer(InBed(patient)); err != nil {
			patient.destroy()
			return nil, fmt.Errorf("generate patient in %s: %w", b.id, err)
		}
	}

	b.patient = patient
	b.occupied = true
	return patient, nil
}

func (b *Bed) rollMissing(prob float64) [organTypeCount]bool {
	var missing [organTypeCount]bool
	if prob <= 0 {
		return missing
	}
	rng := b.env.Rand
	switch b.env.Config.MissingOrganPolicy {
	case MissingPerSlot:
		for _, kind := range OrganTypes {
			missing[kind] = rng.Float64() < prob
		}
	default:
		if rng.Float64() < prob {
			missing[OrganTypes[rng.Intn(organTypeCount)]] = true
		}
	}
	return missing
}

// CanBeInserted reports whether organ would fit the current patient.
func (b *Bed) CanBeInserted(organ *Organ) bool {
	if b.patient == nil || organ == nil || !organ.kind.Valid() {
		return false
	}
	return b.patient.slots[organ.kind] == nil
}

func (b *Bed) organClicked(p *Patient, organ *Organ) {
	if b.onOrganClick != nil {
		b.onOrganClick(p, organ)
	}
}

// onPatientDied empties the bed and destroys the patient together with its
// remaining organs. The bed can take a new patient right away.
func (b *Bed) onPatientDied(p *Patient, frame Frame) {
	if b.patient != p {
		return
	}
	frame.observer().PatientDied(frame.Tick, b, p)
	b.patient = nil
	b.occupied = false
	p.destroy()
	if b.onVacated != nil {
		b.onVacated(b)
	}
}
