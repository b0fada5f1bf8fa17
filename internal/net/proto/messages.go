package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nightshift/server/internal/shift"
	"nightshift/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Client message type identifiers.
const (
	TypeClick     = "click"
	TypePause     = "pause"
	TypeResume    = "resume"
	TypeHeartbeat = "heartbeat"
)

// Server message type identifiers.
const (
	TypeState         = "state"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
	TypeReaction      = "reaction"
)

// ErrUnsupportedVersion is returned for frames carrying a foreign protocol
// version.
var ErrUnsupportedVersion = errors.New("unsupported client protocol version")

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver    int     `json:"ver,omitempty" jsonschema:"description=Protocol version; defaults to the current version"`
	Type   string  `json:"type" jsonschema:"enum=click,enum=pause,enum=resume,enum=heartbeat"`
	Kind   string  `json:"kind,omitempty" jsonschema:"description=Clicked entity class,enum=doctor,enum=organ,enum=bed,enum=trashcan,enum=grinder,enum=background"`
	ID     string  `json:"id,omitempty" jsonschema:"description=Clicked entity id"`
	SentAt int64   `json:"sentAt,omitempty" jsonschema:"description=Client clock in unix milliseconds"`
	Seq    *uint64 `json:"seq,omitempty" jsonschema:"description=Client command sequence used for acks"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("%w %d", ErrUnsupportedVersion, msg.Ver)
	}
	return msg, nil
}

// Sequence returns the command sequence, zero when the client sent none.
func (m ClientMessage) Sequence() uint64 {
	if m.Seq == nil {
		return 0
	}
	return *m.Seq
}

// ClientCommand converts a client message into a simulation command. The
// second result is false for messages that are not commands or are malformed.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	cmd := sim.Command{Seq: msg.Sequence()}
	switch msg.Type {
	case TypeClick:
		kind, err := shift.ParseClickKind(msg.Kind)
		if err != nil {
			return sim.Command{}, false
		}
		if kind != shift.ClickBackground && kind != shift.ClickGrinder && msg.ID == "" {
			return sim.Command{}, false
		}
		cmd.Type = sim.CommandClick
		cmd.Click = &sim.ClickCommand{Kind: string(kind), EntityID: msg.ID}
	case TypePause:
		cmd.Type = sim.CommandPause
	case TypeResume:
		cmd.Type = sim.CommandResume
	default:
		return sim.Command{}, false
	}
	return cmd, true
}

// StateMessage is the per-tick broadcast of the full shift view.
type StateMessage struct {
	Ver        int        `json:"ver"`
	Type       string     `json:"type"`
	ServerTime int64      `json:"serverTime"`
	Shift      shift.View `json:"shift"`
}

// NewStateMessage wraps view for broadcasting.
func NewStateMessage(view shift.View, now time.Time) StateMessage {
	return StateMessage{Ver: Version, Type: TypeState, ServerTime: now.UnixMilli(), Shift: view}
}

// EncodeState renders a state message.
func EncodeState(view shift.View, now time.Time) ([]byte, error) {
	return json.Marshal(NewStateMessage(view, now))
}

// JoinResponse answers POST /join.
type JoinResponse struct {
	Ver             int        `json:"ver"`
	ID              string     `json:"id"`
	TickRate        int        `json:"tickRate"`
	HeartbeatMillis int64      `json:"heartbeatMillis"`
	Shift           shift.View `json:"shift"`
}

type CommandAck struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick,omitempty"`
}

func NewCommandAck(seq, tick uint64) CommandAck {
	return CommandAck{Ver: Version, Type: TypeCommandAck, Seq: seq, Tick: tick}
}

type CommandReject struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
	Tick   uint64 `json:"tick,omitempty"`
}

func NewCommandReject(seq uint64, reason string, retry bool) CommandReject {
	return CommandReject{Ver: Version, Type: TypeCommandReject, Seq: seq, Reason: reason, Retry: retry}
}

// ReactionMessage reports the outcome of a click once the tick applied it.
type ReactionMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
	Tick uint64 `json:"tick"`
	shift.Reaction
}

func NewReactionMessage(seq, tick uint64, reaction shift.Reaction) ReactionMessage {
	return ReactionMessage{Ver: Version, Type: TypeReaction, Seq: seq, Tick: tick, Reaction: reaction}
}

type HeartbeatAck struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

func NewHeartbeatAck(now time.Time, clientTime int64, rtt time.Duration) HeartbeatAck {
	return HeartbeatAck{
		Ver:        Version,
		Type:       TypeHeartbeat,
		ServerTime: now.UnixMilli(),
		ClientTime: clientTime,
		RTTMillis:  rtt.Milliseconds(),
	}
}
