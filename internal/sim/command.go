package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandClick  CommandType = "Click"
	CommandPause  CommandType = "Pause"
	CommandResume CommandType = "Resume"
)

// Valid reports whether t is a known command type.
func (t CommandType) Valid() bool {
	switch t {
	case CommandClick, CommandPause, CommandResume:
		return true
	default:
		return false
	}
}

// ClickCommand names the entity a player clicked. Kind is one of doctor,
// organ, bed, trashcan, grinder or background.
type ClickCommand struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entityId,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	ShiftID    string        `json:"shiftId,omitempty"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Seq        uint64        `json:"seq,omitempty"`
	Click      *ClickCommand `json:"click,omitempty"`
}
