package brokerobs

import (
	"context"
	"fmt"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

// observableBroker wraps an Executor with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Executor
}

// Compile-time interface check
var _ interfaces.Executor = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Executor) interfaces.Executor {
	return &observableBroker{
		broker: broker,
	}
}

// Quote returns the best bid/ask with observability
func (ob *observableBroker) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Quote")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching quote", "symbol", symbol)

	q, err := ob.broker.Quote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol)
		return types.Quote{}, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched successfully", "symbol", symbol, "bid", q.Bid, "ask", q.Ask)
	return q, nil
}

// OpenPositions lists the strategy's lots with observability
func (ob *observableBroker) OpenPositions(ctx context.Context, strategyID string) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.OpenPositions")
	defer span.End()

	positions, err := ob.broker.OpenPositions(ctx, strategyID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch open positions", err, "strategy_id", strategyID)
		return nil, fmt.Errorf("open positions: %w", err)
	}

	logger.DebugSkip(ctx, 1, "Open positions fetched", "strategy_id", strategyID, "count", len(positions))
	return positions, nil
}

// Submit places an order with observability
func (ob *observableBroker) Submit(ctx context.Context, sig types.TradeSignal) (types.Ack, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Submit")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", sig.Symbol,
		"action", sig.Action,
		"ticket", sig.Ticket,
		"strategy_id", sig.StrategyID,
	)

	ack, err := ob.broker.Submit(ctx, sig)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", sig.Symbol,
			"action", sig.Action,
		)
		return types.Ack{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", sig.Symbol,
		"order_id", ack.OrderID,
		"status", ack.Status,
		"price", ack.Price,
		"volume", ack.Volume,
	)
	return ack, nil
}
