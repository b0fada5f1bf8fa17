package intake

import (
	"time"

	"nightshift/server"
	"nightshift/server/internal/net/proto"
	"nightshift/server/internal/shift"
	"nightshift/server/internal/sim"
)

// Enqueuer stages validated commands for the next tick.
type Enqueuer interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Queue     Enqueuer
	HasPlayer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand validates msg, stamps it with the player and the
// current tick, and hands it to the queue. The string result is the reject
// reason when the bool is false.
func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, server.CommandRejectInvalidCommand
	}

	switch command.Type {
	case sim.CommandClick:
		if command.Click == nil {
			return zero, false, server.CommandRejectInvalidCommand
		}
		if _, err := shift.ParseClickKind(command.Click.Kind); err != nil {
			return zero, false, server.CommandRejectInvalidCommand
		}
	case sim.CommandPause, sim.CommandResume:
	default:
		return zero, false, server.CommandRejectInvalidCommand
	}

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, server.CommandRejectUnknownActor
	}

	command.ActorID = playerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Queue == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Queue.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
