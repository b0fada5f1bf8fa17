package ws

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"nightshift/server"
	"nightshift/server/internal/net/intake"
	"nightshift/server/internal/net/proto"
	"nightshift/server/logging"
)

type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
}

// Handler upgrades /ws requests and runs one session per connection.
type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	pub      logging.Publisher
	upgrader websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		pub:      pub,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	sub, view, ok := h.hub.Subscribe(playerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	data, err := proto.EncodeState(view, h.hub.Now())
	if err != nil {
		h.logger.Printf("failed to marshal initial state for %s: %v", playerID, err)
		h.hub.DisconnectSubscriber(playerID, sub)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.DisconnectSubscriber(playerID, sub)
		return
	}

	s := &session{
		handler:  h,
		playerID: playerID,
		conn:     conn,
		sub:      sub,
	}
	s.run()
}

func (h *Handler) intakeContext() intake.CommandContext {
	return intake.CommandContext{
		Queue:     h.hub,
		HasPlayer: h.hub.HasPlayer,
		Tick:      h.hub.Tick,
		Now:       h.hub.Now,
	}
}
