package ward

// TargetKind tags the variant held by a Target.
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetPatient
	TargetTrashCan
	TargetGrinder
	TargetOrgan
)

func (k TargetKind) String() string {
	switch k {
	case TargetPatient:
		return "patient"
	case TargetTrashCan:
		return "trashcan"
	case TargetGrinder:
		return "grinder"
	case TargetOrgan:
		return "organ"
	default:
		return "none"
	}
}

// Container is the uniform organ capability shared by patients, trash cans,
// grinders and loose organs.
type Container interface {
	DoctorPosition() Vec2
	PopOrgan(OrganType) *Organ
	SetOrgan(*Organ) bool
}

// Target is a tagged union over everything a doctor can walk to. The zero
// value holds nothing.
type Target struct {
	kind    TargetKind
	patient *Patient
	trash   *TrashCan
	grinder *Grinder
	organ   *Organ
}

func PatientTarget(p *Patient) Target {
	if p == nil {
		return Target{}
	}
	return Target{kind: TargetPatient, patient: p}
}

func TrashCanTarget(t *TrashCan) Target {
	if t == nil {
		return Target{}
	}
	return Target{kind: TargetTrashCan, trash: t}
}

func GrinderTarget(g *Grinder) Target {
	if g == nil {
		return Target{}
	}
	return Target{kind: TargetGrinder, grinder: g}
}

// OrganTarget targets a loose organ lying in the scene.
func OrganTarget(o *Organ) Target {
	if o == nil {
		return Target{}
	}
	return Target{kind: TargetOrgan, organ: o}
}

func (t Target) Kind() TargetKind { return t.kind }
func (t Target) IsZero() bool     { return t.kind == TargetNone }

func (t Target) Patient() *Patient   { return t.patient }
func (t Target) TrashCan() *TrashCan { return t.trash }
func (t Target) Grinder() *Grinder   { return t.grinder }
func (t Target) Organ() *Organ       { return t.organ }

// ID returns the identifier of the wrapped entity.
func (t Target) ID() string {
	switch t.kind {
	case TargetPatient:
		return t.patient.id
	case TargetTrashCan:
		return t.trash.id
	case TargetGrinder:
		return t.grinder.id
	case TargetOrgan:
		return t.organ.id
	default:
		return ""
	}
}

func (t Target) container() Container {
	switch t.kind {
	case TargetPatient:
		return t.patient
	case TargetTrashCan:
		return t.trash
	case TargetGrinder:
		return t.grinder
	case TargetOrgan:
		return t.organ
	default:
		return nil
	}
}

// DoctorPosition is the coordinate a doctor must reach to act on the target.
func (t Target) DoctorPosition() Vec2 {
	if c := t.container(); c != nil {
		return c.DoctorPosition()
	}
	return Vec2{}
}

// PopOrgan forwards to the wrapped container; the zero target yields nil.
func (t Target) PopOrgan(kind OrganType) *Organ {
	if c := t.container(); c != nil {
		return c.PopOrgan(kind)
	}
	return nil
}

// SetOrgan forwards to the wrapped container; the zero target refuses.
func (t Target) SetOrgan(o *Organ) bool {
	if c := t.container(); c != nil {
		return c.SetOrgan(o)
	}
	return false
}
