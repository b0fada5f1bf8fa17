package server

import (
	"time"

	"nightshift/server/internal/net/proto"
	"nightshift/server/internal/sim"
)

const (
	ProtocolVersion   = proto.Version
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
)

const (
	// CommandRejectUnknownActor is returned for commands from players the hub
	// does not know.
	CommandRejectUnknownActor = "unknown_actor"
	// CommandRejectInvalidCommand is returned for malformed commands.
	CommandRejectInvalidCommand = "invalid_command"
	// CommandRejectShiftOver is returned once the shift clock has run out.
	CommandRejectShiftOver = "shift_over"
	// CommandRejectQueueLimit mirrors the loop's per-actor throttle.
	CommandRejectQueueLimit = sim.CommandRejectQueueLimit
	// CommandRejectQueueFull mirrors the loop's capacity rejection.
	CommandRejectQueueFull = sim.CommandRejectQueueFull
)

const (
	broadcastBytesMetricKey     = "hub_broadcast_bytes_total"
	broadcastFailureMetricKey   = "hub_broadcast_failures_total"
	subscribersMetricKey        = "hub_subscribers"
	reactionsDeliveredMetricKey = "hub_reactions_delivered_total"
)
