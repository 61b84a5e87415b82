package engine

import (
	"context"

	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// quotes prices every symbol the strategy holds. A symbol whose quote fails
// is left out; the evaluator then skips it for this cycle.
func (e *Engine) quotes(ctx context.Context, strategyID string, positions []types.Position) map[string]types.Quote {
	held := types.GroupBySymbol(positions, strategyID)
	out := make(map[string]types.Quote, len(held))
	for symbol := range held {
		q, err := e.exec.Quote(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Quote unavailable", "symbol", symbol, "error", err)
			continue
		}
		if !q.Valid() {
			logger.Warn(ctx, "Ignoring empty quote", "symbol", symbol, "bid", q.Bid, "ask", q.Ask)
			continue
		}
		out[symbol] = q
	}
	return out
}
