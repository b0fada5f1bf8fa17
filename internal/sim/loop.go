package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"nightshift/server/internal/telemetry"
	"nightshift/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"

	ticksMetricKey         = "sim_ticks_total"
	tickDurationMetricKey  = "sim_tick_duration_micros"
	tickOverrunMetricKey   = "sim_tick_budget_overrun_total"
	commandsDropMetricKey  = "sim_commands_dropped_total"
	commandsApplyMetricKey = "sim_commands_applied_total"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int `json:"tickRate"`
	CatchupMaxTicks int `json:"catchupMaxTicks"`
	CommandCapacity int `json:"commandCapacity"`
	PerActorLimit   int `json:"perActorLimit"`
	WarningStep     int `json:"warningStep"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:        15,
		CatchupMaxTicks: 2,
		CommandCapacity: 256,
		PerActorLimit:   16,
		WarningStep:     64,
	}
}

// Normalized fills unset fields with defaults.
func (c LoopConfig) Normalized() LoopConfig {
	defaults := DefaultLoopConfig()
	if c.TickRate <= 0 {
		c.TickRate = defaults.TickRate
	}
	if c.CatchupMaxTicks < 1 {
		c.CatchupMaxTicks = 1
	}
	if c.CommandCapacity <= 0 {
		c.CommandCapacity = defaults.CommandCapacity
	}
	if c.PerActorLimit < 0 {
		c.PerActorLimit = 0
	}
	if c.WarningStep < 0 {
		c.WarningStep = 0
	}
	return c
}

// Budget is the wall-clock time available to one tick.
func (c LoopConfig) Budget() time.Duration {
	return time.Second / time.Duration(c.Normalized().TickRate)
}

// LoopHooks lets the owner observe the loop without wrapping the engine.
type LoopHooks struct {
	NextTick        func() uint64
	AfterStep       func(LoopStepResult)
	OnCommandDrop   func(reason string, cmd Command)
	OnQueueWarning  func(length int)
	OnBudgetOverrun func(result LoopStepResult, streak uint64)
}

// LoopTickContext describes the tick about to run.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta time.Duration
}

// LoopStepResult reports what a single Advance did.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        time.Duration
	Commands     []Command
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     time.Duration
}

// Loop coordinates command ingestion and the fixed-timestep simulation runner.
type Loop struct {
	engine  Engine
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	tick          atomic.Uint64
	overrunStreak uint64

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps engine with a ring-buffer queue and a fixed-rate runner.
func NewLoop(engine Engine, cfg LoopConfig, hooks LoopHooks, deps Deps) *Loop {
	if engine == nil {
		return nil
	}
	cfg = cfg.Normalized()
	clock := deps.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	return &Loop{
		engine:        engine,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		clock:         clock,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Config returns the normalized loop configuration.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Tick returns the last tick the loop advanced.
func (l *Loop) Tick() uint64 {
	if l == nil {
		return 0
	}
	return l.tick.Load()
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// DrainCommands clears the staged command queue without advancing the engine.
func (l *Loop) DrainCommands() []Command {
	if l == nil {
		return nil
	}
	return l.drainCommands()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	warnLength := 0
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
			if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
				l.perActorCount[cmd.ActorID]--
			}
		} else if step := l.config.WarningStep; step > 0 {
			if length := l.buffer.Len(); length >= step && length%step == 0 {
				warnLength = length
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	if warnLength > 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(warnLength)
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	start := l.clock.Now()
	l.engine.Apply(ctx.Tick, commands)
	l.engine.Step(ctx.Tick, ctx.Delta)
	l.tick.Store(ctx.Tick)

	result := LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: commands,
		Duration: l.clock.Now().Sub(start),
		Budget:   l.config.Budget(),
	}
	if l.metrics != nil {
		l.metrics.Add(ticksMetricKey, 1)
		l.metrics.Store(tickDurationMetricKey, uint64(max(result.Duration.Microseconds(), 0)))
		if len(commands) > 0 {
			l.metrics.Add(commandsApplyMetricKey, uint64(len(commands)))
		}
	}
	l.checkBudget(result)
	return result
}

// Run drives the fixed-timestep loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil {
		return
	}
	budget := l.config.Budget()
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	maxDelta := budget * time.Duration(l.config.CatchupMaxTicks)
	last := l.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := l.clock.Now()
			delta := now.Sub(last)
			clamped := false
			if delta <= 0 {
				delta = budget
			} else if delta > maxDelta {
				delta = maxDelta
				clamped = true
			}
			last = now

			tick := l.tick.Load() + 1
			if l.hooks.NextTick != nil {
				tick = l.hooks.NextTick()
			}

			result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: delta})
			result.ClampedDelta = clamped
			result.MaxDelta = maxDelta

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) checkBudget(result LoopStepResult) {
	if result.Budget <= 0 || result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	if l.metrics != nil {
		l.metrics.Add(tickOverrunMetricKey, 1)
	}
	if l.hooks.OnBudgetOverrun != nil {
		l.hooks.OnBudgetOverrun(result, l.overrunStreak)
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		clear(l.perActorCount)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.metrics != nil {
		l.metrics.Add(commandsDropMetricKey, 1)
	}
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	// Logged on powers of two.
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}
