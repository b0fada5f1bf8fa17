package ward

import "time"

// TrashCan is a terminal sink: nothing comes out, everything put in is
// destroyed.
type TrashCan struct {
	id       string
	position Vec2
	env      *Env
}

func NewTrashCan(env *Env, id string, position Vec2) *TrashCan {
	return &TrashCan{id: id, position: position, env: env}
}

func (t *TrashCan) ID() string     { return t.id }
func (t *TrashCan) Position() Vec2 { return t.position }

func (t *TrashCan) DoctorPosition() Vec2 {
	return t.position.Add(t.env.Config.TrashApproach)
}

// PopOrgan always returns nil.
func (t *TrashCan) PopOrgan(OrganType) *Organ { return nil }

// SetOrgan consumes organ and always succeeds.
func (t *TrashCan) SetOrgan(organ *Organ) bool {
	if organ != nil {
		organ.Destroy()
	}
	return true
}

// Grinder consumes doctors sent to it and spawns two fresh loose organs per
// doctor. It is the only source of replacement organs.
type Grinder struct {
	id       string
	position Vec2
	env      *Env
	jobs     []*grindJob
	onSpawn  func(*Organ)
}

type grindJob struct {
	doctor  *Doctor
	fromX   float64
	elapsed time.Duration
}

func NewGrinder(env *Env, id string, position Vec2) *Grinder {
	return &Grinder{id: id, position: position, env: env}
}

func (g *Grinder) ID() string     { return g.id }
func (g *Grinder) Position() Vec2 { return g.position }

// Busy reports how many doctors are still being pulled in.
func (g *Grinder) Busy() int { return len(g.jobs) }

func (g *Grinder) DoctorPosition() Vec2 {
	return g.position.Add(g.env.Config.GrinderApproach)
}

// OnSpawn registers the listener that receives every freshly ground organ.
func (g *Grinder) OnSpawn(fn func(*Organ)) {
	g.onSpawn = fn
}

// PopOrgan always returns nil.
func (g *Grinder) PopOrgan(OrganType) *Organ { return nil }

// SetOrgan always refuses. Organs reach the grinder only inside a doctor,
// through Grind.
func (g *Grinder) SetOrgan(*Organ) bool { return false }

// Grind marks the doctor dead and starts pulling it in. The doctor and any
// organ it carries are destroyed once GrindDuration has elapsed.
func (g *Grinder) Grind(d *Doctor, frame Frame) {
	if d == nil || d.destroyed {
		return
	}
	for _, job := range g.jobs {
		if job.doctor == d {
			return
		}
	}
	d.dead = true
	d.clearAssignment()
	g.jobs = append(g.jobs, &grindJob{doctor: d, fromX: d.position.X})
	frame.observer().DoctorGround(frame.Tick, d, g)
}

// Update advances in-flight grind jobs.
func (g *Grinder) Update(frame Frame) {
	if frame.Paused || len(g.jobs) == 0 {
		return
	}
	duration := g.env.Config.GrindDuration
	pending := make([]*grindJob, 0, len(g.jobs))
	finished := make([]*grindJob, 0)
	for _, job := range g.jobs {
		job.elapsed += frame.Delta
		if job.elapsed < duration {
			progress := float64(job.elapsed) / float64(duration)
			job.doctor.position.X = job.fromX + (g.position.X-job.fromX)*progress
			pending = append(pending, job)
			continue
		}
		finished = append(finished, job)
	}
	g.jobs = pending

	for _, job := range finished {
		job.doctor.position.X = g.position.X
		job.doctor.destroy()
		organs := g.spawnOrgans()
		frame.observer().OrgansSpawned(frame.Tick, g, organs)
		if g.onSpawn == nil {
			continue
		}
		for _, organ := range organs {
			g.onSpawn(organ)
		}
	}
}

func (g *Grinder) spawnOrgans() []*Organ {
	pairing := g.pickPairing()
	cfg := g.env.Config
	organs := make([]*Organ, 0, len(pairing.Types))
	for _, kind := range pairing.Types {
		organ := NewOrgan(g.env, g.env.IDs.NextID("organ"), kind)
		organ.SetPosition(g.position.Add(Vec2{
			X: cfg.ScatterMinX + g.env.Rand.Float64()*cfg.ScatterRangeX,
			Y: g.env.Rand.Float64()*cfg.ScatterRangeY - cfg.ScatterRangeY/2,
		}))
		organs = append(organs, organ)
	}
	return organs
}

func (g *Grinder) pickPairing() Pairing {
	pairings := g.env.Config.GrinderPairings
	total := 0.0
	for _, pairing := range pairings {
		total += pairing.Weight
	}
	roll := g.env.Rand.Float64() * total
	for _, pairing := range pairings {
		if roll < pairing.Weight {
			return pairing
		}
		roll -= pairing.Weight
	}
	return pairings[len(pairings)-1]
}
