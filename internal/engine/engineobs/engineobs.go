package engineobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) RunCycle(ctx context.Context) (types.CycleReport, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Cycle")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Starting trading cycle")

	report, err := oe.engine.RunCycle(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"phase", report.Phase,
			"reason", report.Reason,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return report, err
	}

	if report.Skipped {
		logger.DebugSkip(ctx, 1, "Trading cycle skipped",
			"phase", report.Phase,
			"reason", report.Reason,
		)
		return report, nil
	}

	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"phase", report.Phase,
		"positions", report.Positions,
		"signals", len(report.Signals),
		"submitted", report.Submitted,
		"declined", report.Declined,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
