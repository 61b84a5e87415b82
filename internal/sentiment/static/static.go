// Package static serves fixed sentiment scores, for dry runs and demos.
package static

import (
	"context"
	"maps"
	"sync"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

type Source struct {
	mu     sync.RWMutex
	scores map[string]float64
}

var _ interfaces.SentimentSource = (*Source)(nil)

func New(scores map[string]float64) *Source {
	return &Source{scores: maps.Clone(scores)}
}

// Set replaces the score of one ticker.
func (s *Source) Set(ticker string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scores == nil {
		s.scores = make(map[string]float64)
	}
	s.scores[ticker] = score
}

// Scores returns the configured score of every requested ticker that has one.
func (s *Source) Scores(ctx context.Context, tickers []string) (types.SentimentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(types.SentimentSnapshot, len(tickers))
	for _, t := range tickers {
		if v, ok := s.scores[t]; ok {
			snap[t] = v
		}
	}
	return snap, nil
}
