package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

// SentimentSource scores tickers. Any error means no signals for the cycle.
type SentimentSource interface {
	Scores(ctx context.Context, tickers []string) (types.SentimentSnapshot, error)
}
