package sentimentobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

type observableSource struct {
	source interfaces.SentimentSource
}

var _ interfaces.SentimentSource = (*observableSource)(nil)

// Wrap wraps a sentiment source with logging and tracing
func Wrap(source interfaces.SentimentSource) interfaces.SentimentSource {
	return &observableSource{source: source}
}

func (o *observableSource) Scores(ctx context.Context, tickers []string) (types.SentimentSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "sentiment.Scores")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Fetching sentiment", "tickers", len(tickers))

	snap, err := o.source.Scores(ctx, tickers)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch sentiment", err,
			"tickers", len(tickers),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if missing := len(tickers) - len(snap); missing > 0 {
		logger.WarnSkip(ctx, 1, "Sentiment incomplete", "tickers", len(tickers), "missing", missing)
	}
	logger.DebugSkip(ctx, 1, "Sentiment fetched",
		"scores", len(snap),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}
