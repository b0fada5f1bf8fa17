package ws

import (
	"context"

	"github.com/gorilla/websocket"

	"nightshift/server"
	"nightshift/server/internal/net/intake"
	"nightshift/server/internal/net/proto"
	"nightshift/server/logging"
	"nightshift/server/logging/network"
)

// session reads client frames for one player until the connection drops.
// lastSeq holds the highest acknowledged command sequence so resent
// commands are acked without being staged twice.
type session struct {
	handler  *Handler
	playerID string
	conn     *websocket.Conn
	sub      *server.Subscriber
	lastSeq  uint64
}

func (s *session) run() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.handler.hub.DisconnectSubscriber(s.playerID, s.sub)
			return
		}
		if !s.handle(payload) {
			return
		}
	}
}

// handle processes one frame and reports whether the session is still open.
func (s *session) handle(payload []byte) bool {
	h := s.handler
	msg, err := proto.DecodeClientMessage(payload)
	if err != nil {
		h.logger.Printf("discarding malformed message from %s: %v", s.playerID, err)
		network.MalformedMessage(context.Background(), h.pub, h.hub.Tick(), s.ref(), network.MalformedMessagePayload{
			Error: err.Error(),
			Bytes: len(payload),
		}, nil)
		return true
	}

	if msg.Type == proto.TypeHeartbeat {
		now := h.hub.Now()
		rtt, ok := h.hub.UpdateHeartbeat(s.playerID, now, msg.SentAt)
		if !ok {
			return true
		}
		return s.write(proto.NewHeartbeatAck(now, msg.SentAt, rtt))
	}
	return s.command(msg)
}

func (s *session) command(msg proto.ClientMessage) bool {
	h := s.handler
	seq := msg.Sequence()
	if seq > 0 && s.lastSeq > 0 && seq <= s.lastSeq {
		return s.write(proto.NewCommandAck(seq, 0))
	}

	cmd, ok, reason := intake.StageClientCommand(h.intakeContext(), s.playerID, msg)
	if !ok {
		network.CommandRejected(context.Background(), h.pub, h.hub.Tick(), s.ref(), network.CommandRejectedPayload{
			Reason:      reason,
			CommandType: msg.Type,
		}, nil)
		if reason == server.CommandRejectUnknownActor {
			h.logger.Printf("%s ignored for unknown player %s", msg.Type, s.playerID)
		}
		if seq == 0 {
			return true
		}
		retry := reason == server.CommandRejectQueueLimit || reason == server.CommandRejectQueueFull
		return s.write(proto.NewCommandReject(seq, reason, retry))
	}
	if seq == 0 {
		return true
	}
	s.lastSeq = seq
	return s.write(proto.NewCommandAck(seq, cmd.OriginTick))
}

func (s *session) write(payload any) bool {
	if err := s.sub.WriteJSON(payload); err != nil {
		s.handler.hub.DisconnectSubscriber(s.playerID, s.sub)
		return false
	}
	return true
}

func (s *session) ref() logging.EntityRef {
	return logging.Ref(logging.EntityKindSubscriber, s.playerID)
}
