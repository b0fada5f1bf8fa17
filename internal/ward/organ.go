package ward

import "time"

// LocationKind tags where an organ currently lives.
type LocationKind uint8

const (
	LocationUnattached LocationKind = iota
	LocationInBed
	LocationCarried
)

func (k LocationKind) String() string {
	switch k {
	case LocationInBed:
		return "in_bed"
	case LocationCarried:
		return "carried"
	default:
		return "unattached"
	}
}

// Location is the single owner of an organ.
type Location struct {
	Kind    LocationKind
	Patient *Patient
	Doctor  *Doctor
}

func Unattached() Location { return Location{} }

func InBed(p *Patient) Location { return Location{Kind: LocationInBed, Patient: p} }

func CarriedBy(d *Doctor) Location { return Location{Kind: LocationCarried, Doctor: d} }

func (l Location) holder() holder {
	switch l.Kind {
	case LocationInBed:
		if l.Patient != nil {
			return l.Patient
		}
	case LocationCarried:
		if l.Doctor != nil {
			return l.Doctor
		}
	}
	return nil
}

// holder is implemented by the containers that can own an organ. adopt may
// refuse; release must forget the organ unconditionally.
type holder interface {
	adopt(o *Organ) error
	release(o *Organ)
}

// Organ is a single organ entity. It is owned by at most one container at a
// time and only ever changes hands through RemoveFromContainer followed by
// AttachToContainer.
type Organ struct {
	id   string
	kind OrganType

	decaying       bool
	decayRemaining time.Duration
	decayTotal     time.Duration
	dead           bool
	destroyed      bool

	location Location
	position Vec2
	selected bool
	onClick  func(*Organ)

	env *Env
}

// NewOrgan creates a healthy, unattached organ.
func NewOrgan(env *Env, id string, kind OrganType) *Organ {
	return &Organ{id: id, kind: kind, env: env}
}

func (o *Organ) ID() string         { return o.id }
func (o *Organ) Type() OrganType    { return o.kind }
func (o *Organ) IsDead() bool       { return o.dead }
func (o *Organ) Destroyed() bool    { return o.destroyed }
func (o *Organ) Location() Location { return o.location }
func (o *Organ) Selected() bool     { return o.selected }

func (o *Organ) SetSelected(selected bool) { o.selected = selected }

// IsLoose reports whether the organ lies unclaimed in the scene.
func (o *Organ) IsLoose() bool {
	return !o.destroyed && o.location.Kind == LocationUnattached
}

// StartDecay arms a fresh countdown, replacing any previous one. Callers check
// HasProblem first.
func (o *Organ) StartDecay(d time.Duration) {
	o.decaying = true
	o.decayRemaining = d
	o.decayTotal = d
}

// HasProblem is true while the organ decays or once it is dead.
func (o *Organ) HasProblem() bool {
	return o.dead || o.decaying
}

// DecayRemaining returns the countdown and whether one is active.
func (o *Organ) DecayRemaining() (time.Duration, bool) {
	return o.decayRemaining, o.decaying
}

func (o *Organ) DecayTotal() time.Duration { return o.decayTotal }

// DecayFraction is the health interpolation factor: 1 for a healthy organ,
// decayRemaining/decayTotal while decaying and 0 once dead.
func (o *Organ) DecayFraction() float64 {
	if o.dead {
		return 0
	}
	if !o.decaying || o.decayTotal <= 0 {
		return 1
	}
	return float64(o.decayRemaining) / float64(o.decayTotal)
}

// Update advances the decay countdown.
func (o *Organ) Update(frame Frame) {
	if frame.Paused || o.destroyed || !o.decaying {
		return
	}
	o.decayRemaining -= frame.Delta
	if o.decayRemaining > 0 {
		return
	}
	o.decayRemaining = 0
	o.decaying = false
	o.dead = true
	frame.observer().OrganDied(frame.Tick, o)
}

// RemoveFromContainer releases the organ from its current owner and strips
// every location-dependent listener. It is a no-op for unattached organs.
func (o *Organ) RemoveFromContainer() {
	owner := o.location.holder()
	o.location = Unattached()
	o.onClick = nil
	if owner != nil {
		owner.release(o)
	}
}

// AttachToContainer hands the organ to loc's owner. It fails with an
// *InvalidStateError when the organ already has a location, was destroyed, or
// the owner refuses it.
func (o *Organ) AttachToContainer(loc Location) error {
	if o.destroyed {
		return invalidState("attach", o, "organ destroyed")
	}
	if o.location.Kind != LocationUnattached {
		return invalidState("attach", o, "organ already %s", o.location.Kind)
	}
	owner := loc.holder()
	if owner == nil {
		return invalidState("attach", o, "no container for %s", loc.Kind)
	}
	o.onClick = nil
	if err := owner.adopt(o); err != nil {
		return err
	}
	o.location = loc
	return nil
}

// Destroy removes the organ from play.
func (o *Organ) Destroy() {
	if o.destroyed {
		return
	}
	o.RemoveFromContainer()
	o.destroyed = true
	o.decaying = false
	o.selected = false
}

// SetClickHandler installs the click listener of a loose organ. Attaching the
// organ anywhere strips it.
func (o *Organ) SetClickHandler(fn func(*Organ)) {
	o.onClick = fn
}

// Click invokes the current click listener and reports whether one ran.
func (o *Organ) Click() bool {
	if o.destroyed || o.onClick == nil {
		return false
	}
	o.onClick(o)
	return true
}

// SetPosition moves a loose organ.
func (o *Organ) SetPosition(pos Vec2) {
	o.position = pos
}

// Position mirrors the logical owner: slot offset on the bed, pinned to the
// facing side of a carrying doctor, or the organ's own coordinate when loose.
func (o *Organ) Position() Vec2 {
	switch o.location.Kind {
	case LocationInBed:
		if p := o.location.Patient; p != nil && p.bed != nil {
			return p.bed.position.Add(slotOffset(o.kind))
		}
	case LocationCarried:
		if d := o.location.Doctor; d != nil {
			offset := 0.0
			if o.env != nil {
				offset = o.env.Config.CarryOffsetX
			}
			return d.position.Add(Vec2{X: offset * float64(d.facing)})
		}
	}
	return o.position
}

func slotOffset(kind OrganType) Vec2 {
	return Vec2{X: float64(int(kind)-1) * 12, Y: -14}
}

// DoctorPosition is where a doctor stands to pick a loose organ up.
func (o *Organ) DoctorPosition() Vec2 {
	return o.Position()
}

// PopOrgan hands out the organ itself while it is still loose and of the
// requested type. Claiming happens when the doctor attaches it.
func (o *Organ) PopOrgan(kind OrganType) *Organ {
	if !o.IsLoose() || kind != o.kind {
		return nil
	}
	return o
}

// SetOrgan always refuses: nothing can be inserted into an organ.
func (o *Organ) SetOrgan(*Organ) bool {
	return false
}
