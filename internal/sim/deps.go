package sim

import (
	"nightshift/server/internal/telemetry"
	"nightshift/server/logging"
)

// Metrics is the subset of telemetry.Metrics the loop reports to.
type Metrics = telemetry.Metrics

// Deps carries shared infrastructure dependencies required by the loop.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}
