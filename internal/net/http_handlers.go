package net

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	nethttp "net/http"
	"time"

	"nightshift/server"
	"nightshift/server/internal/net/ws"
	"nightshift/server/internal/observability"
	"nightshift/server/internal/telemetry"
	"nightshift/server/internal/ward"
	"nightshift/server/logging"
)

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Publisher     logging.Publisher
	Observability observability.Config
	// Metrics serves /metrics when set.
	Metrics nethttp.Handler
	// RouterStats adds event router counters to /diagnostics when set.
	RouterStats func() logging.RouterStats
}

// resetRequest lists the shift fields /shift/reset may override. Absent
// fields keep the running shift's value.
type resetRequest struct {
	Seed                 *string  `json:"seed"`
	MissingOrganPolicy   *string  `json:"missingOrganPolicy"`
	MissingOrganProb     *float64 `json:"missingOrganProb"`
	EasyPatientProb      *float64 `json:"easyPatientProb"`
	Beds                 *int     `json:"beds"`
	InitialOrgans        *int     `json:"initialOrgans"`
	GrinderAppearSeconds *float64 `json:"grinderAppearSeconds"`
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	stdLogger := log.Default()
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			stdLogger = candidate
		}
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hubCfg := hub.Config()
		payload := struct {
			Status      string               `json:"status"`
			ServerTime  int64                `json:"serverTime"`
			TickRate    int                  `json:"tickRate"`
			Heartbeat   int64                `json:"heartbeatTimeoutMillis"`
			Hub         server.Diagnostics   `json:"hub"`
			RouterStats *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: hub.Now().UnixMilli(),
			TickRate:   hubCfg.Loop.TickRate,
			Heartbeat:  hubCfg.HeartbeatTimeout.Milliseconds(),
			Hub:        hub.DiagnosticsSnapshot(),
		}
		if cfg.RouterStats != nil {
			stats := cfg.RouterStats()
			payload.RouterStats = &stats
		}
		writeJSON(w, payload)
	})

	mux.HandleFunc("/shift/reset", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		shiftCfg := hub.Config().Shift
		if r.Body != nil {
			defer r.Body.Close()
			var req resetRequest
			decoder := json.NewDecoder(r.Body)
			if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
			if req.Seed != nil {
				shiftCfg.Seed = *req.Seed
			}
			if req.MissingOrganPolicy != nil {
				policy, err := ward.ParseMissingOrganPolicy(*req.MissingOrganPolicy)
				if err != nil {
					httpError(w, err.Error(), nethttp.StatusBadRequest)
					return
				}
				shiftCfg.Ward.MissingOrganPolicy = policy
			}
			if req.MissingOrganProb != nil {
				shiftCfg.MissingOrganProb = *req.MissingOrganProb
			}
			if req.EasyPatientProb != nil {
				shiftCfg.Ward.EasyPatientProb = *req.EasyPatientProb
			}
			if req.Beds != nil {
				shiftCfg.Beds = *req.Beds
			}
			if req.InitialOrgans != nil {
				shiftCfg.InitialOrgans = *req.InitialOrgans
			}
			if req.GrinderAppearSeconds != nil {
				shiftCfg.GrinderAppearTime = time.Duration(*req.GrinderAppearSeconds * float64(time.Second))
			}
		}

		view, err := hub.ResetShift(shiftCfg)
		if err != nil {
			logger.Printf("shift reset failed: %v", err)
			httpError(w, "reset failed", nethttp.StatusInternalServerError)
			return
		}

		response := struct {
			Status string `json:"status"`
			Config any    `json:"config"`
			Shift  any    `json:"shift"`
		}{
			Status: "ok",
			Config: hub.Config().Shift,
			Shift:  view,
		}
		writeJSON(w, response)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, hub.Join())
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: stdLogger, Publisher: cfg.Publisher})
	mux.HandleFunc("/ws", wsHandler.Handle)

	observability.Register(mux, cfg.Observability)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
