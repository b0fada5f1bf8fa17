package ward

import "time"

// Difficulty selects the problem interval a patient draws from.
type Difficulty uint8

const (
	DifficultyHard Difficulty = iota
	DifficultyEasy
)

func (d Difficulty) String() string {
	if d == DifficultyEasy {
		return "easy"
	}
	return "hard"
}

// Patient owns one organ slot per OrganType and periodically arms decay on a
// healthy organ. It dies once every present organ is dead.
type Patient struct {
	id         string
	env        *Env
	bed        *Bed
	slots      [organTypeCount]*Organ
	difficulty Difficulty
	interval   Interval

	nextProblem time.Duration
	dead        bool
	destroyed   bool
}

func newPatient(env *Env, id string, bed *Bed, difficulty Difficulty) *Patient {
	interval := env.Config.HardProblemInterval
	if difficulty == DifficultyEasy {
		interval = env.Config.EasyProblemInterval
	}
	return &Patient{
		id:          id,
		env:         env,
		bed:         bed,
		difficulty:  difficulty,
		interval:    interval,
		nextProblem: interval.Sample(env.Rand),
	}
}

func (p *Patient) ID() string             { return p.id }
func (p *Patient) Bed() *Bed              { return p.bed }
func (p *Patient) Difficulty() Difficulty { return p.difficulty }
func (p *Patient) Dead() bool             { return p.dead }
func (p *Patient) Destroyed() bool        { return p.destroyed }

// NextProblemIn reports the remaining time before the next problem roll.
func (p *Patient) NextProblemIn() time.Duration { return p.nextProblem }

// Organ returns the organ occupying slot kind, or nil when it is empty.
func (p *Patient) Organ(kind OrganType) *Organ {
	if !kind.Valid() {
		return nil
	}
	return p.slots[kind]
}

// Organs returns a copy of the slot table indexed by OrganType.
func (p *Patient) Organs() [organTypeCount]*Organ {
	return p.slots
}

// DoctorPosition is the approach coordinate next to the patient's bed.
func (p *Patient) DoctorPosition() Vec2 {
	if p.bed == nil {
		return Vec2{}
	}
	return p.bed.DoctorPosition()
}

// PopOrgan detaches and returns the organ in slot kind. It returns nil when
// the slot is empty; callers treat nil as "extraction not possible".
func (p *Patient) PopOrgan(kind OrganType) *Organ {
	if p.destroyed || !kind.Valid() {
		return nil
	}
	organ := p.slots[kind]
	if organ == nil {
		return nil
	}
	organ.RemoveFromContainer()
	return organ
}

// SetOrgan moves organ into its matching slot when that slot is empty. On
// failure the organ is left exactly where it was.
func (p *Patient) SetOrgan(organ *Organ) bool {
	if organ == nil || organ.destroyed || p.destroyed || p.dead {
		return false
	}
	if !organ.kind.Valid() || p.slots[organ.kind] != nil {
		return false
	}
	previous := organ.location
	organ.RemoveFromContainer()
	if err := organ.AttachToContainer(InBed(p)); err != nil {
		// Nothing was moved; hand the organ back to its previous owner.
		if previous.Kind != LocationUnattached {
			_ = organ.AttachToContainer(previous)
		}
		return false
	}
	return true
}

func (p *Patient) adopt(organ *Organ) error {
	if p.destroyed {
		return invalidState("attach", organ, "patient %s destroyed", p.id)
	}
	if !organ.kind.Valid() {
		return invalidState("attach", organ, "unknown organ type")
	}
	if p.slots[organ.kind] != nil {
		return invalidState("attach", organ, "patient %s slot %s occupied", p.id, organ.kind)
	}
	p.slots[organ.kind] = organ
	organ.onClick = p.organClicked
	return nil
}

func (p *Patient) release(organ *Organ) {
	if organ.kind.Valid() && p.slots[organ.kind] == organ {
		p.slots[organ.kind] = nil
	}
}

func (p *Patient) organClicked(organ *Organ) {
	if p.bed != nil {
		p.bed.organClicked(p, organ)
	}
}

// Update runs problem generation, advances every present organ and detects
// death. A dead patient never updates again.
func (p *Patient) Update(frame Frame) {
	if frame.Paused || p.dead || p.destroyed {
		return
	}
	p.nextProblem -= frame.Delta
	if p.nextProblem <= 0 {
		if organ := p.pickProblemOrgan(); organ != nil {
			organ.StartDecay(p.env.Config.OrganDecay)
			p.nextProblem = p.interval.Sample(p.env.Rand)
			frame.observer().ProblemStarted(frame.Tick, p, organ)
		}
	}
	for _, kind := range OrganTypes {
		if organ := p.slots[kind]; organ != nil {
			organ.Update(frame)
		}
	}
	if !p.allPresentDead() {
		return
	}
	p.dead = true
	if p.bed != nil {
		p.bed.onPatientDied(p, frame)
	}
}

// IsDead reports whether every present organ is dead. Empty slots do not
// count either way, so a patient with no organs left is dead.
func (p *Patient) IsDead() bool {
	return p.dead || p.allPresentDead()
}

func (p *Patient) allPresentDead() bool {
	for _, organ := range p.slots {
		if organ != nil && !organ.dead {
			return false
		}
	}
	return true
}

func (p *Patient) pickProblemOrgan() *Organ {
	candidates := make([]*Organ, 0, organTypeCount)
	for _, organ := range p.slots {
		if organ != nil && !organ.HasProblem() {
			candidates = append(candidates, organ)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 || p.env.Rand == nil {
		return candidates[0]
	}
	return candidates[p.env.Rand.Intn(len(candidates))]
}

// destroy removes the patient and every organ it still holds.
func (p *Patient) destroy() {
	if p.destroyed {
		return
	}
	for _, organ := range p.slots {
		if organ != nil {
			organ.Destroy()
		}
	}
	p.destroyed = true
}
