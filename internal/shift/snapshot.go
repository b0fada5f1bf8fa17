package shift

import (
	"nightshift/server/internal/ward"
)

// View is an immutable copy of the observable shift state.
type View struct {
	ID               string        `json:"id"`
	Tick             uint64        `json:"tick"`
	Clock            ClockView     `json:"clock"`
	Paused           bool          `json:"paused"`
	Over             bool          `json:"over"`
	Stats            Stats         `json:"stats"`
	Beds             []BedView     `json:"beds"`
	Doctors          []DoctorView  `json:"doctors"`
	LooseOrgans      []OrganView   `json:"looseOrgans"`
	TrashCans        []FixtureView `json:"trashCans"`
	Grinder          GrinderView   `json:"grinder"`
	SelectedDoctor   string        `json:"selectedDoctor,omitempty"`
	SelectedOrgan    string        `json:"selectedOrgan,omitempty"`
	MissingOrganMode string        `json:"missingOrganMode"`
}

type ClockView struct {
	Hour    int     `json:"hour"`
	Minutes float64 `json:"minutes"`
	Label   string  `json:"label"`
}

type BedView struct {
	ID       string       `json:"id"`
	Slot     int          `json:"slot"`
	Position ward.Vec2    `json:"position"`
	Occupied bool         `json:"occupied"`
	Patient  *PatientView `json:"patient,omitempty"`
}

type PatientView struct {
	ID         string      `json:"id"`
	Difficulty string      `json:"difficulty"`
	Organs     []OrganView `json:"organs"`
}

// OrganView describes one organ. Decay is the fraction of health left,
// 1 for a healthy organ and 0 for a dead one.
type OrganView struct {
	ID       string         `json:"id"`
	Type     ward.OrganType `json:"type"`
	Position ward.Vec2      `json:"position"`
	Problem  bool           `json:"problem"`
	Decay    float64        `json:"decay"`
	Dead     bool           `json:"dead"`
	Selected bool           `json:"selected,omitempty"`
}

type DoctorView struct {
	ID       string      `json:"id"`
	Position ward.Vec2   `json:"position"`
	Home     ward.Vec2   `json:"home"`
	Facing   ward.Facing `json:"facing"`
	Task     string      `json:"task"`
	Target   string      `json:"target,omitempty"`
	Carrying *OrganView  `json:"carrying,omitempty"`
	Selected bool        `json:"selected,omitempty"`
	Grinding bool        `json:"grinding,omitempty"`
}

type FixtureView struct {
	ID       string    `json:"id"`
	Position ward.Vec2 `json:"position"`
}

type GrinderView struct {
	FixtureView
	Available bool `json:"available"`
	Busy      int  `json:"busy,omitempty"`
}

// Snapshot copies the current state into a View.
func (s *Shift) Snapshot() View {
	view := View{
		ID:   s.id,
		Tick: s.tick,
		Clock: ClockView{
			Hour:    s.clock.Hour,
			Minutes: s.clock.Minutes,
			Label:   s.clock.Label(),
		},
		Paused:           s.paused,
		Over:             s.over,
		Stats:            s.stats,
		Beds:             make([]BedView, 0, len(s.beds)),
		Doctors:          make([]DoctorView, 0, len(s.doctors)),
		LooseOrgans:      make([]OrganView, 0, len(s.loose)),
		TrashCans:        make([]FixtureView, 0, len(s.trashCans)),
		MissingOrganMode: string(s.env.Config.MissingOrganPolicy),
		Grinder: GrinderView{
			FixtureView: FixtureView{ID: s.grinder.ID(), Position: s.grinder.Position()},
			Available:   s.GrinderAvailable(),
			Busy:        s.grinder.Busy(),
		},
	}
	if s.selectedDoctor != nil {
		view.SelectedDoctor = s.selectedDoctor.ID()
	}
	if s.selectedOrgan != nil {
		view.SelectedOrgan = s.selectedOrgan.ID()
	}

	for _, bed := range s.beds {
		bv := BedView{ID: bed.ID(), Slot: bed.Slot(), Position: bed.Position(), Occupied: bed.Occupied()}
		if patient := bed.Patient(); patient != nil {
			pv := &PatientView{ID: patient.ID(), Difficulty: patient.Difficulty().String()}
			for _, organ := range patient.Organs() {
				if organ != nil {
					pv.Organs = append(pv.Organs, organView(organ))
				}
			}
			bv.Patient = pv
		}
		view.Beds = append(view.Beds, bv)
	}
	for _, doctor := range s.doctors {
		view.Doctors = append(view.Doctors, doctorView(doctor))
	}
	for _, organ := range s.loose {
		view.LooseOrgans = append(view.LooseOrgans, organView(organ))
	}
	for _, trash := range s.trashCans {
		view.TrashCans = append(view.TrashCans, FixtureView{ID: trash.ID(), Position: trash.Position()})
	}
	return view
}

func organView(organ *ward.Organ) OrganView {
	return OrganView{
		ID:       organ.ID(),
		Type:     organ.Type(),
		Position: organ.Position(),
		Problem:  organ.HasProblem(),
		Decay:    organ.DecayFraction(),
		Dead:     organ.IsDead(),
		Selected: organ.Selected(),
	}
}

func doctorView(doctor *ward.Doctor) DoctorView {
	dv := DoctorView{
		ID:       doctor.ID(),
		Position: doctor.Position(),
		Home:     doctor.Home(),
		Facing:   doctor.Facing(),
		Task:     doctor.Task().String(),
		Target:   doctor.Target().ID(),
		Selected: doctor.Selected(),
		Grinding: doctor.Dead(),
	}
	if carried := doctor.Carried(); carried != nil {
		ov := organView(carried)
		dv.Carrying = &ov
	}
	return dv
}
