package network

import (
	"context"

	"nightshift/server/logging"
)

const (
	// EventMalformedMessage is emitted when a client sends a frame that cannot be decoded.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventCommandRejected is emitted when a decoded command fails validation.
	EventCommandRejected logging.EventType = "network.command_rejected"
	// EventBroadcastFailed is emitted when a state frame cannot be delivered to a subscriber.
	EventBroadcastFailed logging.EventType = "network.broadcast_failed"
)

// MalformedMessagePayload carries the decode error.
type MalformedMessagePayload struct {
	Error string `json:"error"`
	Bytes int    `json:"bytes"`
}

// CommandRejectedPayload explains the rejection.
type CommandRejectedPayload struct {
	Reason      string `json:"reason"`
	CommandType string `json:"commandType,omitempty"`
}

// BroadcastFailedPayload carries the write error.
type BroadcastFailedPayload struct {
	Error string `json:"error"`
}

// MalformedMessage publishes a warning about an undecodable frame.
func MalformedMessage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MalformedMessagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMalformedMessage,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// CommandRejected publishes a debug event for a rejected command.
func CommandRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventCommandRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// BroadcastFailed publishes a warning when a subscriber write fails.
func BroadcastFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BroadcastFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBroadcastFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
