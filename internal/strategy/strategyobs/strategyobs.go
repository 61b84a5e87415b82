package strategyobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

type observableStrategy struct {
	strategy interfaces.Strategy
}

var _ interfaces.Strategy = (*observableStrategy)(nil)

func Wrap(s interfaces.Strategy) interfaces.Strategy {
	return &observableStrategy{strategy: s}
}

func (o *observableStrategy) ID() string {
	return o.strategy.ID()
}

func (o *observableStrategy) Evaluate(ctx context.Context, in types.CycleInput) []types.TradeSignal {
	ctx, span := trace.StartSpan(ctx, "strategy.Evaluate")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Evaluating sentiment snapshot",
		"strategy_id", o.strategy.ID(),
		"tickers", len(in.Snapshot),
		"positions", len(in.Positions),
		"quotes", len(in.Quotes),
	)

	signals := o.strategy.Evaluate(ctx, in)

	logger.DebugSkip(ctx, 1, "Evaluation complete",
		"strategy_id", o.strategy.ID(),
		"signals", len(signals),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return signals
}

func (o *observableStrategy) Flatten(ctx context.Context, positions []types.Position) []types.TradeSignal {
	ctx, span := trace.StartSpan(ctx, "strategy.Flatten")
	defer span.End()

	signals := o.strategy.Flatten(ctx, positions)
	logger.InfoSkip(ctx, 1, "Flattening positions",
		"strategy_id", o.strategy.ID(),
		"positions", len(positions),
		"exits", len(signals),
	)
	return signals
}
