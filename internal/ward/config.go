package ward

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// MissingOrganPolicy selects how GeneratePatient removes organs up front.
type MissingOrganPolicy string

const (
	// MissingAtMostOne rolls once and removes at most one random organ.
	MissingAtMostOne MissingOrganPolicy = "at_most_one"
	// MissingPerSlot rolls independently for every slot.
	MissingPerSlot MissingOrganPolicy = "per_slot"
)

// ParseMissingOrganPolicy validates a policy name. Blank input selects
// MissingAtMostOne.
func ParseMissingOrganPolicy(raw string) (MissingOrganPolicy, error) {
	switch policy := MissingOrganPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case "":
		return MissingAtMostOne, nil
	case MissingAtMostOne, MissingPerSlot:
		return policy, nil
	default:
		return "", fmt.Errorf("unknown missing organ policy %q", raw)
	}
}

// Interval is an inclusive duration range sampled uniformly.
type Interval struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Sample draws a duration from the interval. Degenerate ranges return Min.
func (i Interval) Sample(rng Rand) time.Duration {
	if i.Max <= i.Min || rng == nil {
		return i.Min
	}
	return i.Min + time.Duration(rng.Float64()*float64(i.Max-i.Min))
}

// Pairing is one outcome of a grind: two organ types spawned together.
type Pairing struct {
	Types  [2]OrganType `json:"types"`
	Weight float64      `json:"weight"`
}

// Config carries every tunable constant the ward entities consume.
type Config struct {
	DoctorSpeed         float64            `json:"doctorSpeed"`
	OrganDecay          time.Duration      `json:"organDecay"`
	EasyPatientProb     float64            `json:"easyPatientProb"`
	EasyProblemInterval Interval           `json:"easyProblemInterval"`
	HardProblemInterval Interval           `json:"hardProblemInterval"`
	MissingOrganPolicy  MissingOrganPolicy `json:"missingOrganPolicy"`
	GrinderPairings     []Pairing          `json:"grinderPairings"`
	GrindDuration       time.Duration      `json:"grindDuration"`

	// Cosmetic offsets, kept so a presentation layer can mirror the scene.
	BedApproach     Vec2    `json:"bedApproach"`
	TrashApproach   Vec2    `json:"trashApproach"`
	GrinderApproach Vec2    `json:"grinderApproach"`
	CarryOffsetX    float64 `json:"carryOffsetX"`
	ScatterMinX     float64 `json:"scatterMinX"`
	ScatterRangeX   float64 `json:"scatterRangeX"`
	ScatterRangeY   float64 `json:"scatterRangeY"`
}

const (
	DefaultDoctorSpeed = 70.0
	DefaultOrganDecay  = 60 * time.Second
)

func DefaultConfig() Config {
	return Config{
		DoctorSpeed:         DefaultDoctorSpeed,
		OrganDecay:          DefaultOrganDecay,
		EasyPatientProb:     0.3,
		EasyProblemInterval: Interval{Min: 30 * time.Second, Max: 600 * time.Second},
		HardProblemInterval: Interval{Min: 10 * time.Second, Max: 40 * time.Second},
		MissingOrganPolicy:  MissingAtMostOne,
		GrinderPairings:     DefaultPairings(),
		GrindDuration:       time.Second,
		BedApproach:         Vec2{X: -20},
		TrashApproach:       Vec2{X: -20},
		GrinderApproach:     Vec2{X: -40},
		CarryOffsetX:        8,
		ScatterMinX:         50,
		ScatterRangeX:       50,
		ScatterRangeY:       50,
	}
}

// DefaultPairings returns the three organ pairs a grinder can produce, each
// with equal weight.
func DefaultPairings() []Pairing {
	return []Pairing{
		{Types: [2]OrganType{OrganCranium, OrganLiver}, Weight: 1},
		{Types: [2]OrganType{OrganLiver, OrganNephro}, Weight: 1},
		{Types: [2]OrganType{OrganCranium, OrganNephro}, Weight: 1},
	}
}

// Normalized fills unset or invalid fields with defaults.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	if normalized.DoctorSpeed <= 0 {
		normalized.DoctorSpeed = defaults.DoctorSpeed
	}
	if normalized.OrganDecay <= 0 {
		normalized.OrganDecay = defaults.OrganDecay
	}
	normalized.EasyPatientProb = clampProbability(normalized.EasyPatientProb)
	if normalized.EasyProblemInterval.Max <= 0 {
		normalized.EasyProblemInterval = defaults.EasyProblemInterval
	}
	if normalized.HardProblemInterval.Max <= 0 {
		normalized.HardProblemInterval = defaults.HardProblemInterval
	}
	switch MissingOrganPolicy(strings.TrimSpace(string(normalized.MissingOrganPolicy))) {
	case MissingPerSlot:
		normalized.MissingOrganPolicy = MissingPerSlot
	default:
		normalized.MissingOrganPolicy = MissingAtMostOne
	}
	pairings := make([]Pairing, 0, len(normalized.GrinderPairings))
	for _, pairing := range normalized.GrinderPairings {
		if pairing.Weight <= 0 || !pairing.Types[0].Valid() || !pairing.Types[1].Valid() {
			continue
		}
		pairings = append(pairings, pairing)
	}
	if len(pairings) == 0 {
		pairings = defaults.GrinderPairings
	}
	normalized.GrinderPairings = pairings
	if normalized.GrindDuration < 0 {
		normalized.GrindDuration = 0
	}
	return normalized
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Env bundles the shared dependencies every ward entity is built with.
type Env struct {
	Config Config
	Rand   Rand
	IDs    IDSource
}

// NewEnv normalizes cfg and fills in a fixed-seed random source and a fresh
// id sequence when none are supplied.
func NewEnv(cfg Config, rng Rand, ids IDSource) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if ids == nil {
		ids = NewSequence()
	}
	return &Env{Config: cfg.Normalized(), Rand: rng, IDs: ids}
}
