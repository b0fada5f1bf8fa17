package sim

import "time"

// Engine is the simulation driven by the Loop. Apply runs on the loop
// goroutine at the start of every tick, before Step.
type Engine interface {
	Apply(tick uint64, cmds []Command)
	Step(tick uint64, delta time.Duration)
}

// EngineFuncs adapts a pair of functions into an Engine.
type EngineFuncs struct {
	ApplyFunc func(tick uint64, cmds []Command)
	StepFunc  func(tick uint64, delta time.Duration)
}

func (e EngineFuncs) Apply(tick uint64, cmds []Command) {
	if e.ApplyFunc != nil {
		e.ApplyFunc(tick, cmds)
	}
}

func (e EngineFuncs) Step(tick uint64, delta time.Duration) {
	if e.StepFunc != nil {
		e.StepFunc(tick, delta)
	}
}
