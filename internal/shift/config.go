package shift

import (
	"time"

	"nightshift/server/internal/ward"
)

// Range is an inclusive float range sampled uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Config describes the layout and pacing of a shift. Ward holds the
// constants consumed by the entities themselves.
type Config struct {
	Ward ward.Config `json:"ward"`
	Seed string      `json:"seed"`

	Beds       int       `json:"beds"`
	BedOrigin  ward.Vec2 `json:"bedOrigin"`
	BedSpacing float64   `json:"bedSpacing"`

	TrashCans         []ward.Vec2   `json:"trashCans"`
	Grinder           ward.Vec2     `json:"grinder"`
	GrinderAppearTime time.Duration `json:"grinderAppearTime"`

	DoctorSpawnInterval time.Duration `json:"doctorSpawnInterval"`
	FirstDoctorDelay    time.Duration `json:"firstDoctorDelay"`
	DoctorSpawnX        float64       `json:"doctorSpawnX"`
	DoctorHomeX         Range         `json:"doctorHomeX"`
	DoctorLaneY         Range         `json:"doctorLaneY"`

	PatientSpawnInterval    time.Duration `json:"patientSpawnInterval"`
	MissingOrganProb        float64       `json:"missingOrganProb"`
	InitialMissingOrganProb float64       `json:"initialMissingOrganProb"`

	InitialOrgans int   `json:"initialOrgans"`
	OrganScatterX Range `json:"organScatterX"`
	OrganScatterY Range `json:"organScatterY"`

	StartHour             int     `json:"startHour"`
	ClockMinutesPerSecond float64 `json:"clockMinutesPerSecond"`
}

const (
	DefaultSeed          = "nightshift"
	DefaultBeds          = 7
	DefaultInitialOrgans = 10
	DefaultStartHour     = 20
)

func DefaultConfig() Config {
	return Config{
		Ward:       ward.DefaultConfig(),
		Seed:       DefaultSeed,
		Beds:       DefaultBeds,
		BedOrigin:  ward.Vec2{X: 50, Y: 100},
		BedSpacing: 60,
		TrashCans: []ward.Vec2{
			{X: 57, Y: 227},
			{X: 406, Y: 227},
		},
		Grinder:                 ward.Vec2{X: 182, Y: 211},
		GrinderAppearTime:       120 * time.Second,
		DoctorSpawnInterval:     30 * time.Second,
		FirstDoctorDelay:        500 * time.Millisecond,
		DoctorSpawnX:            -20,
		DoctorHomeX:             Range{Min: 20, Max: 40},
		DoctorLaneY:             Range{Min: 195, Max: 215},
		PatientSpawnInterval:    30 * time.Second,
		MissingOrganProb:        0.5,
		InitialMissingOrganProb: 1,
		InitialOrgans:           DefaultInitialOrgans,
		OrganScatterX:           Range{Min: 232, Max: 332},
		OrganScatterY:           Range{Min: 181, Max: 241},
		StartHour:               DefaultStartHour,
		ClockMinutesPerSecond:   2,
	}
}

// Normalized fills unset or invalid fields with defaults.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	normalized.Ward = cfg.Ward.Normalized()
	if normalized.Seed == "" {
		normalized.Seed = defaults.Seed
	}
	if normalized.Beds <= 0 {
		normalized.Beds = defaults.Beds
	}
	if normalized.BedSpacing <= 0 {
		normalized.BedSpacing = defaults.BedSpacing
	}
	if len(normalized.TrashCans) == 0 {
		normalized.TrashCans = defaults.TrashCans
	}
	if normalized.GrinderAppearTime < 0 {
		normalized.GrinderAppearTime = 0
	}
	if normalized.DoctorSpawnInterval <= 0 {
		normalized.DoctorSpawnInterval = defaults.DoctorSpawnInterval
	}
	if normalized.FirstDoctorDelay < 0 {
		normalized.FirstDoctorDelay = 0
	}
	if normalized.PatientSpawnInterval <= 0 {
		normalized.PatientSpawnInterval = defaults.PatientSpawnInterval
	}
	normalized.MissingOrganProb = clamp01(normalized.MissingOrganProb)
	normalized.InitialMissingOrganProb = clamp01(normalized.InitialMissingOrganProb)
	if normalized.InitialOrgans < 0 {
		normalized.InitialOrgans = 0
	}
	if normalized.StartHour < 1 || normalized.StartHour > 24 {
		normalized.StartHour = defaults.StartHour
	}
	if normalized.ClockMinutesPerSecond <= 0 {
		normalized.ClockMinutesPerSecond = defaults.ClockMinutesPerSecond
	}
	return normalized
}

// BedPosition is the fixed coordinate of bed slot i.
func (cfg Config) BedPosition(slot int) ward.Vec2 {
	return ward.Vec2{X: cfg.BedOrigin.X + float64(slot)*cfg.BedSpacing, Y: cfg.BedOrigin.Y}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
