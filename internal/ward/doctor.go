package ward

// Task is the doctor's current activity.
type Task uint8

const (
	TaskIdle Task = iota
	TaskMovingToStart
	TaskMovingToTarget
	TaskReturning
)

func (t Task) String() string {
	switch t {
	case TaskMovingToStart:
		return "moving_to_start"
	case TaskMovingToTarget:
		return "moving_to_target"
	case TaskReturning:
		return "returning"
	default:
		return "idle"
	}
}

// Phase is the axis a doctor resolves while walking to a target. X is always
// fully resolved before Y.
type Phase uint8

const (
	PhaseAlongX Phase = iota
	PhaseAlongY
)

func (p Phase) String() string {
	if p == PhaseAlongY {
		return "y"
	}
	return "x"
}

// Doctor is an autonomous agent walking between its home lane and targets.
// Availability of a target is validated on arrival, never at assignment, so
// racing doctors resolve as first-to-arrive-wins.
type Doctor struct {
	id       string
	env      *Env
	position Vec2
	home     Vec2
	facing   Facing

	task       Task
	phase      Phase
	target     Target
	removeType OrganType
	removing   bool
	carried    *Organ
	followUp   func()

	selected  bool
	dead      bool
	destroyed bool
	onClick   func(*Doctor)
}

// NewDoctor spawns a doctor at spawn that walks to home before it accepts
// assignments. A doctor spawned at home starts idle.
func NewDoctor(env *Env, id string, spawn, home Vec2) *Doctor {
	d := &Doctor{
		id:       id,
		env:      env,
		position: spawn,
		home:     home,
		facing:   FacingRight,
		task:     TaskMovingToStart,
	}
	if spawn == home {
		d.task = TaskIdle
	}
	return d
}

func (d *Doctor) ID() string        { return d.id }
func (d *Doctor) Position() Vec2    { return d.position }
func (d *Doctor) Home() Vec2        { return d.home }
func (d *Doctor) Facing() Facing    { return d.facing }
func (d *Doctor) Task() Task        { return d.task }
func (d *Doctor) Phase() Phase      { return d.phase }
func (d *Doctor) Target() Target    { return d.target }
func (d *Doctor) Carried() *Organ   { return d.carried }
func (d *Doctor) Selected() bool    { return d.selected }
func (d *Doctor) Dead() bool        { return d.dead }
func (d *Doctor) Destroyed() bool   { return d.destroyed }
func (d *Doctor) HasFollowUp() bool { return d.followUp != nil }

// RemoveType returns the organ type to extract at the target, if any.
func (d *Doctor) RemoveType() (OrganType, bool) {
	return d.removeType, d.removing
}

func (d *Doctor) SetSelected(selected bool) { d.selected = selected }

// SetClickHandler installs the doctor's click listener.
func (d *Doctor) SetClickHandler(fn func(*Doctor)) { d.onClick = fn }

// Click invokes the click listener and reports whether one ran.
func (d *Doctor) Click() bool {
	if d.destroyed || d.onClick == nil {
		return false
	}
	d.onClick(d)
	return true
}

// IsReadyToRemove is true for an idle doctor with empty hands.
func (d *Doctor) IsReadyToRemove() bool {
	return d.task == TaskIdle && d.carried == nil && !d.dead && !d.destroyed
}

// IsReadyToInsert is true for an idle doctor carrying an organ.
func (d *Doctor) IsReadyToInsert() bool {
	return d.task == TaskIdle && d.carried != nil && !d.dead && !d.destroyed
}

// SetRemoveTarget sends the doctor to extract kind from patient. It refuses
// unless the doctor is ready to remove.
func (d *Doctor) SetRemoveTarget(patient *Patient, kind OrganType) bool {
	if patient == nil || !kind.Valid() || !d.IsReadyToRemove() {
		return false
	}
	d.assign(PatientTarget(patient))
	d.removeType = kind
	d.removing = true
	return true
}

// SetTarget sends an idle doctor to target. What happens on arrival depends
// on the target kind and on whether the doctor carries an organ.
func (d *Doctor) SetTarget(target Target) bool {
	if target.IsZero() || d.task != TaskIdle || d.dead || d.destroyed {
		return false
	}
	d.assign(target)
	return true
}

// MoveOrgan chains two legs: fetch kind from source (a patient or a loose
// organ), then deliver it to destination once back in the lane. A failed
// first leg drops the second.
func (d *Doctor) MoveOrgan(source Target, kind OrganType, destination Target) bool {
	if destination.IsZero() {
		return false
	}
	switch source.Kind() {
	case TargetPatient:
		if !d.SetRemoveTarget(source.Patient(), kind) {
			return false
		}
	case TargetOrgan:
		if source.Organ().Type() != kind || !d.IsReadyToRemove() || !d.SetTarget(source) {
			return false
		}
	default:
		return false
	}
	d.followUp = func() {
		d.SetTarget(destination)
	}
	return true
}

func (d *Doctor) assign(target Target) {
	d.target = target
	d.removing = false
	d.task = TaskMovingToTarget
	d.phase = PhaseAlongX
}

// Update advances the state machine by one tick. Paused frames and dead
// doctors are skipped entirely.
func (d *Doctor) Update(frame Frame) {
	if frame.Paused || d.dead || d.destroyed {
		return
	}
	step := d.env.Config.DoctorSpeed * frame.Delta.Seconds()
	switch d.task {
	case TaskMovingToStart:
		if d.walkTo(d.home, step) {
			d.task = TaskIdle
		}
	case TaskMovingToTarget:
		d.advanceToTarget(frame, step)
	case TaskReturning:
		next, arrived := stepAxis(d.position.Y, d.home.Y, step)
		d.position.Y = next
		if !arrived {
			return
		}
		d.task = TaskIdle
		if followUp := d.followUp; followUp != nil {
			d.followUp = nil
			followUp()
		}
	}
}

func (d *Doctor) walkTo(dest Vec2, step float64) bool {
	if d.position.X != dest.X {
		if !d.stepX(dest.X, step) {
			return false
		}
		step = 0
	}
	next, arrived := stepAxis(d.position.Y, dest.Y, step)
	d.position.Y = next
	return arrived
}

func (d *Doctor) stepX(destX, step float64) bool {
	if destX > d.position.X {
		d.facing = FacingRight
	} else if destX < d.position.X {
		d.facing = FacingLeft
	}
	next, arrived := stepAxis(d.position.X, destX, step)
	d.position.X = next
	return arrived
}

func (d *Doctor) advanceToTarget(frame Frame, step float64) {
	if d.target.IsZero() {
		d.finishLeg()
		return
	}
	if d.target.Kind() == TargetOrgan && !d.target.Organ().IsLoose() {
		// Someone else picked the organ up first.
		d.abort(frame, AbortTargetClaimed)
		d.finishLeg()
		return
	}
	dest := d.target.DoctorPosition()
	if d.phase == PhaseAlongX {
		if !d.stepX(dest.X, step) {
			return
		}
		d.phase = PhaseAlongY
		step = 0
	}
	next, arrived := stepAxis(d.position.Y, dest.Y, step)
	d.position.Y = next
	if !arrived {
		return
	}
	d.arrive(frame)
}

func (d *Doctor) arrive(frame Frame) {
	target := d.target
	switch target.Kind() {
	case TargetPatient, TargetTrashCan:
		if d.carried == nil {
			d.extract(frame, target)
		} else {
			d.insert(frame, target)
		}
	case TargetGrinder:
		target.Grinder().Grind(d, frame)
		return
	case TargetOrgan:
		if d.carried != nil {
			d.abort(frame, AbortNothingToCarry)
			break
		}
		d.pickUp(frame, target)
	}
	d.finishLeg()
}

func (d *Doctor) extract(frame Frame, target Target) {
	if !d.removing {
		d.abort(frame, AbortNothingToCarry)
		return
	}
	organ := target.PopOrgan(d.removeType)
	if organ == nil {
		d.abort(frame, AbortExtractionFailed)
		return
	}
	if err := organ.AttachToContainer(CarriedBy(d)); err != nil {
		target.SetOrgan(organ)
		frame.observer().RelocationFailed(frame.Tick, d, organ, err)
		d.abort(frame, AbortRelocationFailure)
		return
	}
	frame.observer().OrganExtracted(frame.Tick, d, organ, target)
}

func (d *Doctor) insert(frame Frame, target Target) {
	organ := d.carried
	if !target.SetOrgan(organ) {
		d.abort(frame, AbortInsertionFailed)
		return
	}
	if d.carried == organ {
		d.carried = nil
	}
	frame.observer().OrganInserted(frame.Tick, d, organ, target)
}

func (d *Doctor) pickUp(frame Frame, target Target) {
	loose := target.Organ()
	organ := target.PopOrgan(loose.Type())
	if organ == nil {
		d.abort(frame, AbortTargetClaimed)
		return
	}
	if err := organ.AttachToContainer(CarriedBy(d)); err != nil {
		frame.observer().RelocationFailed(frame.Tick, d, organ, err)
		d.abort(frame, AbortRelocationFailure)
		return
	}
	frame.observer().OrganExtracted(frame.Tick, d, organ, target)
}

func (d *Doctor) abort(frame Frame, reason AbortReason) {
	d.followUp = nil
	frame.observer().TaskAborted(frame.Tick, d, reason)
}

func (d *Doctor) finishLeg() {
	d.target = Target{}
	d.removing = false
	d.phase = PhaseAlongX
	d.task = TaskReturning
}

func (d *Doctor) clearAssignment() {
	d.target = Target{}
	d.removing = false
	d.followUp = nil
}

func (d *Doctor) adopt(organ *Organ) error {
	if d.dead || d.destroyed {
		return invalidState("attach", organ, "doctor %s is gone", d.id)
	}
	if d.carried != nil {
		return invalidState("attach", organ, "doctor %s already carries %s", d.id, d.carried.id)
	}
	d.carried = organ
	return nil
}

func (d *Doctor) release(organ *Organ) {
	if d.carried == organ {
		d.carried = nil
	}
}

// Destroy removes the doctor and whatever it carries from play.
func (d *Doctor) Destroy() {
	d.destroy()
}

func (d *Doctor) destroy() {
	if d.destroyed {
		return
	}
	if d.carried != nil {
		d.carried.Destroy()
	}
	d.clearAssignment()
	d.dead = true
	d.destroyed = true
	d.selected = false
}
