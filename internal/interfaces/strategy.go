package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

type Strategy interface {
	ID() string
	// Evaluate returns the ordered signals for one cycle. It must not block.
	Evaluate(ctx context.Context, in types.CycleInput) []types.TradeSignal
	// Flatten returns one exit per open position tagged with ID().
	Flatten(ctx context.Context, positions []types.Position) []types.TradeSignal
}
