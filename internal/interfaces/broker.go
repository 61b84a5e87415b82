package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

// Executor is the broker side of the loop: it owns positions and places orders.
type Executor interface {
	OpenPositions(ctx context.Context, strategyID string) ([]types.Position, error)
	Submit(ctx context.Context, sig types.TradeSignal) (types.Ack, error)
	Quote(ctx context.Context, symbol string) (types.Quote, error)
}
