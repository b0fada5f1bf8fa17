package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	server "nightshift/server"
	servernet "nightshift/server/internal/net"
	"nightshift/server/internal/observability"
	"nightshift/server/internal/telemetry"
	"nightshift/server/internal/ward"
	"nightshift/server/logging"
	loggingSinks "nightshift/server/logging/sinks"
)

const (
	defaultAddr     = ":8080"
	metricNamespace = "nightshift"
	shutdownTimeout = 5 * time.Second
)

type Config struct {
	Logger        telemetry.Logger
	Observability observability.Config
	// Stdout receives the console log sink; os.Stdout when nil.
	Stdout io.Writer
}

// settings is the resolved runtime configuration after environment
// overrides.
type settings struct {
	addr          string
	clientDir     string
	hub           server.HubConfig
	logging       logging.Config
	observability observability.Config
}

// loadSettings applies environment overrides on top of the defaults.
// Invalid values are reported through logger and ignored.
func loadSettings(getenv func(string) string, base observability.Config, logger telemetry.Logger) settings {
	s := settings{
		addr:          defaultAddr,
		hub:           server.DefaultHubConfig(),
		logging:       logging.DefaultConfig(),
		observability: base,
	}
	s.observability.EnableMetrics = true

	if raw := getenv("NIGHTSHIFT_ADDR"); raw != "" {
		s.addr = raw
	}
	s.clientDir = getenv("CLIENT_DIR")
	if raw := getenv("TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			s.hub.Loop.TickRate = value
		} else {
			logger.Printf("invalid TICK_RATE=%q", raw)
		}
	}
	if raw := getenv("SHIFT_SEED"); raw != "" {
		s.hub.Shift.Seed = raw
	}
	if raw := getenv("MISSING_ORGAN_POLICY"); raw != "" {
		if policy, err := ward.ParseMissingOrganPolicy(raw); err == nil {
			s.hub.Shift.Ward.MissingOrganPolicy = policy
		} else {
			logger.Printf("invalid MISSING_ORGAN_POLICY: %v", err)
		}
	}
	if raw := getenv("MISSING_ORGAN_PROB"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 && value <= 1 {
			s.hub.Shift.MissingOrganProb = value
		} else {
			logger.Printf("invalid MISSING_ORGAN_PROB=%q", raw)
		}
	}
	if raw := getenv("LOG_SINKS"); raw != "" {
		if sinks := logging.ParseSinks(raw); len(sinks) > 0 {
			s.logging.EnabledSinks = sinks
		}
	}
	if raw := getenv("LOG_JSON_PATH"); raw != "" {
		s.logging.JSON.FilePath = raw
	}
	if raw := getenv("LOG_MIN_SEVERITY"); raw != "" {
		if severity, err := logging.ParseSeverity(raw); err == nil {
			s.logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid LOG_MIN_SEVERITY: %v", err)
		}
	}
	if raw := getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			s.observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}
	if raw := getenv("ENABLE_METRICS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			s.observability.EnableMetrics = value
		} else {
			logger.Printf("invalid ENABLE_METRICS=%q: %v", raw, err)
		}
	}
	s.hub = s.hub.Normalized()
	return s
}

// Run starts the event router, the hub simulation and the HTTP server, and
// blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	s := loadSettings(os.Getenv, cfg.Observability, telemetryLogger)

	namedSinks, err := loggingSinks.Build(s.logging, stdout)
	if err != nil {
		return fmt.Errorf("failed to build log sinks: %w", err)
	}
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), s.logging, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	prom := telemetry.NewPrometheus(metricNamespace)
	hub, err := server.NewHub(s.hub, router, server.HubDeps{Logger: telemetryLogger, Metrics: prom})
	if err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	simCtx, stopSim := context.WithCancel(ctx)
	defer stopSim()
	go hub.RunSimulation(simCtx)

	handlerCfg := servernet.HTTPHandlerConfig{
		ClientDir:     s.clientDir,
		Logger:        telemetryLogger,
		Publisher:     router,
		Observability: s.observability,
		RouterStats:   router.Stats,
	}
	if s.observability.EnableMetrics {
		handlerCfg.Metrics = prom.Handler()
	}
	srv := &http.Server{Addr: s.addr, Handler: servernet.NewHTTPHandler(hub, handlerCfg)}
	telemetryLogger.Printf("server listening on %s (tick rate %d, seed %q)", srv.Addr, s.hub.Loop.TickRate, s.hub.Shift.Seed)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}
