package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"nightshift/server/internal/net/proto"
	"nightshift/server/internal/shift"
	"nightshift/server/internal/sim"
	"nightshift/server/internal/telemetry"
	"nightshift/server/logging"
	"nightshift/server/logging/lifecycle"
	"nightshift/server/logging/network"
	"nightshift/server/logging/simulation"
)

// HubConfig bundles the shift layout with the loop and connection tuning.
type HubConfig struct {
	Shift            shift.Config   `json:"shift"`
	Loop             sim.LoopConfig `json:"loop"`
	HeartbeatTimeout time.Duration  `json:"heartbeatTimeout"`
	WriteWait        time.Duration  `json:"writeWait"`
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Shift:            shift.DefaultConfig(),
		Loop:             sim.DefaultLoopConfig(),
		HeartbeatTimeout: disconnectAfter,
		WriteWait:        writeWait,
	}
}

// Normalized fills unset fields with defaults.
func (c HubConfig) Normalized() HubConfig {
	c.Shift = c.Shift.Normalized()
	c.Loop = c.Loop.Normalized()
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = disconnectAfter
	}
	if c.WriteWait <= 0 {
		c.WriteWait = writeWait
	}
	return c
}

// HubDeps carries the infrastructure shared with the simulation loop.
type HubDeps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber serialises writes to one client connection.
type Subscriber struct {
	conn      Conn
	writeWait time.Duration
	clock     logging.Clock
	mu        sync.Mutex
}

// WriteMessage sends one frame, bounded by the hub's write deadline.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(s.clock.Now().Add(s.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// WriteJSON marshals payload and sends it as a text frame.
func (s *Subscriber) WriteJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", payload, err)
	}
	return s.WriteMessage(websocket.TextMessage, data)
}

type playerState struct {
	id            string
	joinedAt      time.Time
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

type pendingReaction struct {
	actor    string
	seq      uint64
	tick     uint64
	reaction shift.Reaction
}

// Hub owns the running shift, every joined player and their subscriber
// connections. Player input is staged on the simulation loop and applied on
// the loop goroutine; every tick ends with a state broadcast.
type Hub struct {
	mu          sync.Mutex
	cfg         HubConfig
	shift       *shift.Shift
	players     map[string]*playerState
	subscribers map[string]*Subscriber
	reactions   []pendingReaction
	nextID      atomic.Uint64

	loop     *sim.Loop
	pub      logging.Publisher
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	counters *telemetry.Counters
	clock    logging.Clock
	ctx      context.Context
}

// NewHub starts a shift from cfg and wires it to a fresh simulation loop.
func NewHub(cfg HubConfig, pub logging.Publisher, deps HubDeps) (*Hub, error) {
	cfg = cfg.Normalized()
	if pub == nil {
		pub = logging.NopPublisher()
	}
	clock := deps.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	current, err := shift.New(cfg.Shift, pub)
	if err != nil {
		return nil, fmt.Errorf("start shift: %w", err)
	}

	counters := &telemetry.Counters{}
	h := &Hub{
		cfg:         cfg,
		shift:       current,
		players:     make(map[string]*playerState),
		subscribers: make(map[string]*Subscriber),
		pub:         pub,
		logger:      logger,
		metrics:     telemetry.Multi(counters, deps.Metrics),
		counters:    counters,
		clock:       clock,
		ctx:         context.Background(),
	}
	h.loop = sim.NewLoop(hubEngine{hub: h}, cfg.Loop, sim.LoopHooks{
		AfterStep:       h.afterStep,
		OnCommandDrop:   h.onCommandDrop,
		OnQueueWarning:  h.onQueueWarning,
		OnBudgetOverrun: h.onBudgetOverrun,
	}, sim.Deps{Logger: logger, Metrics: h.metrics, Clock: clock})
	return h, nil
}

// Join registers a new player and returns the current shift view.
func (h *Hub) Join() proto.JoinResponse {
	playerID := fmt.Sprintf("player-%d", h.nextID.Add(1))
	now := h.clock.Now()

	h.mu.Lock()
	h.players[playerID] = &playerState{id: playerID, joinedAt: now, lastHeartbeat: now}
	view := h.shift.Snapshot()
	h.mu.Unlock()

	lifecycle.SubscriberJoined(h.ctx, h.pub, view.Tick, subscriberRef(playerID), nil)
	return proto.JoinResponse{
		Ver:             proto.Version,
		ID:              playerID,
		TickRate:        h.loop.Config().TickRate,
		HeartbeatMillis: heartbeatInterval.Milliseconds(),
		Shift:           view,
	}
}

// Subscribe associates a connection with an existing player, replacing any
// previous connection for that player.
func (h *Hub) Subscribe(playerID string, conn Conn) (*Subscriber, shift.View, bool) {
	h.mu.Lock()
	state, ok := h.players[playerID]
	if !ok {
		h.mu.Unlock()
		return nil, shift.View{}, false
	}
	state.lastHeartbeat = h.clock.Now()
	existing := h.subscribers[playerID]
	sub := &Subscriber{conn: conn, writeWait: h.cfg.WriteWait, clock: h.clock}
	h.subscribers[playerID] = sub
	count := len(h.subscribers)
	view := h.shift.Snapshot()
	h.mu.Unlock()

	if existing != nil {
		existing.conn.Close()
	}
	h.metrics.Store(subscribersMetricKey, uint64(count))
	return sub, view, true
}

// Disconnect removes a player and closes its connection. It reports whether
// the player was known.
func (h *Hub) Disconnect(playerID string) bool {
	return h.disconnect(playerID, nil, "disconnect")
}

// DisconnectSubscriber removes playerID only while sub is still its current
// connection. A connection already replaced by Subscribe is closed and the
// player is kept.
func (h *Hub) DisconnectSubscriber(playerID string, sub *Subscriber) bool {
	return h.disconnect(playerID, sub, "disconnect")
}

func (h *Hub) disconnect(playerID string, owner *Subscriber, reason string) bool {
	h.mu.Lock()
	sub := h.subscribers[playerID]
	if owner != nil && sub != owner {
		h.mu.Unlock()
		owner.conn.Close()
		return false
	}
	delete(h.subscribers, playerID)
	_, known := h.players[playerID]
	delete(h.players, playerID)
	count := len(h.subscribers)
	tick := h.shift.Tick()
	h.mu.Unlock()

	if sub != nil {
		sub.conn.Close()
	}
	if !known {
		return false
	}
	h.metrics.Store(subscribersMetricKey, uint64(count))
	lifecycle.SubscriberLeft(h.ctx, h.pub, tick, subscriberRef(playerID), lifecycle.SubscriberLeftPayload{Reason: reason}, nil)
	return true
}

// HasPlayer reports whether playerID has joined and not yet left.
func (h *Hub) HasPlayer(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.players[playerID]
	return ok
}

// UpdateHeartbeat records the most recent heartbeat time and RTT for a player.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.players[playerID]
	if !ok {
		return 0, false
	}
	state.lastHeartbeat = receivedAt
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			state.lastRTT = max(receivedAt.Sub(clientTime), 0)
		}
	}
	return state.lastRTT, true
}

// Enqueue stages a player command for the next tick. The command is bound
// to the running shift and dropped if the shift is reset before it applies.
func (h *Hub) Enqueue(cmd sim.Command) (bool, string) {
	if !cmd.Type.Valid() || (cmd.Type == sim.CommandClick && cmd.Click == nil) {
		return false, CommandRejectInvalidCommand
	}
	h.mu.Lock()
	_, known := h.players[cmd.ActorID]
	over := h.shift.Over()
	cmd.ShiftID = h.shift.ID()
	h.mu.Unlock()
	if !known {
		return false, CommandRejectUnknownActor
	}
	if over {
		return false, CommandRejectShiftOver
	}
	return h.loop.Enqueue(cmd)
}

// Tick returns the last tick the loop advanced.
func (h *Hub) Tick() uint64 { return h.loop.Tick() }

// Now returns the hub clock's current time.
func (h *Hub) Now() time.Time { return h.clock.Now() }

// Config returns the normalized hub configuration.
func (h *Hub) Config() HubConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Snapshot returns the current shift view.
func (h *Hub) Snapshot() shift.View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shift.Snapshot()
}

// ResetShift replaces the running shift with a fresh one built from cfg.
// Staged commands refer to the old shift's entities and are discarded.
func (h *Hub) ResetShift(cfg shift.Config) (shift.View, error) {
	cfg = cfg.Normalized()
	next, err := shift.New(cfg, h.pub)
	if err != nil {
		return shift.View{}, fmt.Errorf("reset shift: %w", err)
	}
	h.loop.DrainCommands()

	h.mu.Lock()
	h.shift = next
	h.cfg.Shift = cfg
	h.reactions = nil
	view := next.Snapshot()
	h.mu.Unlock()

	h.logger.Printf("shift reset id=%s seed=%s policy=%s", view.ID, cfg.Seed, view.MissingOrganMode)
	h.broadcast(h.clock.Now())
	return view, nil
}

// RunSimulation drives the fixed-rate tick loop until ctx is cancelled.
func (h *Hub) RunSimulation(ctx context.Context) {
	h.loop.Run(ctx)
}

// Advance runs a single tick outside the ticker, broadcasting afterwards.
func (h *Hub) Advance(delta time.Duration) sim.LoopStepResult {
	now := h.clock.Now()
	result := h.loop.Advance(sim.LoopTickContext{Tick: h.loop.Tick() + 1, Now: now, Delta: delta})
	h.afterStep(result)
	return result
}

// DiagnosticsPlayer reports heartbeat data for one player.
type DiagnosticsPlayer struct {
	ID            string `json:"id"`
	Subscribed    bool   `json:"subscribed"`
	JoinedAt      int64  `json:"joinedAt"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rtt"`
}

// Diagnostics is the payload of the diagnostics endpoint.
type Diagnostics struct {
	Tick      uint64              `json:"tick"`
	ShiftID   string              `json:"shiftId"`
	ShiftTick uint64              `json:"shiftTick"`
	Paused    bool                `json:"paused"`
	Over      bool                `json:"over"`
	Pending   int                 `json:"pendingCommands"`
	Players   []DiagnosticsPlayer `json:"players"`
	Telemetry map[string]uint64   `json:"telemetry"`
}

// DiagnosticsSnapshot exposes loop, heartbeat and telemetry data.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	h.mu.Lock()
	diag := Diagnostics{
		Tick:      h.loop.Tick(),
		ShiftID:   h.shift.ID(),
		ShiftTick: h.shift.Tick(),
		Paused:    h.shift.Paused(),
		Over:      h.shift.Over(),
		Players:   make([]DiagnosticsPlayer, 0, len(h.players)),
	}
	for id, state := range h.players {
		_, subscribed := h.subscribers[id]
		diag.Players = append(diag.Players, DiagnosticsPlayer{
			ID:            id,
			Subscribed:    subscribed,
			JoinedAt:      state.joinedAt.UnixMilli(),
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		})
	}
	h.mu.Unlock()

	sort.Slice(diag.Players, func(i, j int) bool { return diag.Players[i].ID < diag.Players[j].ID })
	diag.Pending = h.loop.Pending()
	diag.Telemetry = h.counters.Snapshot()
	return diag
}

// TelemetrySnapshot returns the hub's in-process counters.
func (h *Hub) TelemetrySnapshot() map[string]uint64 {
	return h.counters.Snapshot()
}

// hubEngine adapts the hub to sim.Engine without exporting the tick hooks.
type hubEngine struct {
	hub *Hub
}

func (e hubEngine) Apply(tick uint64, cmds []sim.Command) { e.hub.apply(tick, cmds) }
func (e hubEngine) Step(tick uint64, delta time.Duration) { e.hub.step(tick, delta) }

func (h *Hub) apply(tick uint64, cmds []sim.Command) {
	if len(cmds) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.shift.ID()
	for _, cmd := range cmds {
		if cmd.ShiftID != current {
			continue
		}
		switch cmd.Type {
		case sim.CommandClick:
			if cmd.Click == nil {
				continue
			}
			reaction := h.shift.Click(shift.ClickKind(cmd.Click.Kind), cmd.Click.EntityID)
			h.reactions = append(h.reactions, pendingReaction{
				actor:    cmd.ActorID,
				seq:      cmd.Seq,
				tick:     tick,
				reaction: reaction,
			})
		case sim.CommandPause:
			h.shift.SetPaused(true)
		case sim.CommandResume:
			h.shift.SetPaused(false)
		}
	}
}

type staleSubscriber struct {
	id  string
	sub *Subscriber
}

func (h *Hub) step(_ uint64, delta time.Duration) {
	now := h.clock.Now()
	h.mu.Lock()
	h.shift.Step(delta)
	stale := h.expireLocked(now)
	tick := h.shift.Tick()
	count := len(h.subscribers)
	h.mu.Unlock()

	if len(stale) == 0 {
		return
	}
	for _, entry := range stale {
		if entry.sub != nil {
			entry.sub.conn.Close()
		}
		h.logger.Printf("disconnecting %s due to heartbeat timeout", entry.id)
		lifecycle.SubscriberLeft(h.ctx, h.pub, tick, subscriberRef(entry.id), lifecycle.SubscriberLeftPayload{Reason: "heartbeat_timeout"}, nil)
	}
	h.metrics.Store(subscribersMetricKey, uint64(count))
}

func (h *Hub) expireLocked(now time.Time) []staleSubscriber {
	var stale []staleSubscriber
	for id, state := range h.players {
		if now.Sub(state.lastHeartbeat) <= h.cfg.HeartbeatTimeout {
			continue
		}
		stale = append(stale, staleSubscriber{id: id, sub: h.subscribers[id]})
		delete(h.subscribers, id)
		delete(h.players, id)
	}
	return stale
}

func (h *Hub) afterStep(result sim.LoopStepResult) {
	now := result.Now
	if now.IsZero() {
		now = h.clock.Now()
	}
	h.broadcast(now)
}

// broadcast sends the shift view to every subscriber, then each pending
// click reaction to the player that issued it.
func (h *Hub) broadcast(now time.Time) {
	h.mu.Lock()
	view := h.shift.Snapshot()
	reactions := h.reactions
	h.reactions = nil
	subs := maps.Clone(h.subscribers)
	h.mu.Unlock()

	data, err := proto.EncodeState(view, now)
	if err != nil {
		h.logger.Printf("failed to marshal state message: %v", err)
		return
	}
	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.failSubscriber(id, sub, view.Tick, err)
			delete(subs, id)
			continue
		}
		h.metrics.Add(broadcastBytesMetricKey, uint64(len(data)))
	}

	for _, pending := range reactions {
		sub, ok := subs[pending.actor]
		if !ok {
			continue
		}
		msg := proto.NewReactionMessage(pending.seq, pending.tick, pending.reaction)
		if err := sub.WriteJSON(msg); err != nil {
			h.failSubscriber(pending.actor, sub, view.Tick, err)
			delete(subs, pending.actor)
			continue
		}
		h.metrics.Add(reactionsDeliveredMetricKey, 1)
	}
}

func (h *Hub) failSubscriber(playerID string, sub *Subscriber, tick uint64, err error) {
	h.metrics.Add(broadcastFailureMetricKey, 1)
	network.BroadcastFailed(h.ctx, h.pub, tick, subscriberRef(playerID), network.BroadcastFailedPayload{Error: err.Error()}, nil)
	h.disconnect(playerID, sub, "write_failed")
}

func (h *Hub) onCommandDrop(reason string, cmd sim.Command) {
	simulation.CommandDropped(h.ctx, h.pub, h.loop.Tick(), subscriberRef(cmd.ActorID), simulation.CommandDroppedPayload{
		Reason:      reason,
		CommandType: string(cmd.Type),
		Pending:     h.loop.Pending(),
	}, nil)
}

func (h *Hub) onQueueWarning(length int) {
	h.logger.Printf("[backpressure] command queue length=%d capacity=%d", length, h.loop.Config().CommandCapacity)
}

func (h *Hub) onBudgetOverrun(result sim.LoopStepResult, streak uint64) {
	ratio := 0.0
	if result.Budget > 0 {
		ratio = float64(result.Duration) / float64(result.Budget)
	}
	simulation.TickBudgetOverrun(h.ctx, h.pub, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         streak,
	}, nil)
}

func subscriberRef(id string) logging.EntityRef {
	return logging.Ref(logging.EntityKindSubscriber, id)
}
