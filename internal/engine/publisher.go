package engine

import (
	"context"
	"math"
	"sort"
	"sync"

	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/types"
)

// SnapshotSink receives every distinct published snapshot. Sinks must not
// block for long; they run on the engine goroutine.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, snap types.SentimentSnapshot)
}

// Score is one row of the display view.
type Score struct {
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
}

// Publisher keeps the last sentiment snapshot and forwards changes to sinks.
type Publisher struct {
	mu        sync.RWMutex
	last      types.SentimentSnapshot
	published bool
	sinks     []SnapshotSink
	metrics   *metrics.Recorder
}

func NewPublisher(m *metrics.Recorder, sinks ...SnapshotSink) *Publisher {
	return &Publisher{metrics: m, sinks: sinks}
}

func (p *Publisher) AddSink(s SnapshotSink) {
	p.mu.Lock()
	p.sinks = append(p.sinks, s)
	p.mu.Unlock()
}

// Publish stores snap and fans it out unless it equals the last one.
// It reports whether anything was published.
func (p *Publisher) Publish(ctx context.Context, snap types.SentimentSnapshot) bool {
	p.mu.Lock()
	if p.published && p.last.Equal(snap) {
		p.mu.Unlock()
		return false
	}
	p.last = snap.Clone()
	p.published = true
	sinks := append([]SnapshotSink(nil), p.sinks...)
	p.mu.Unlock()

	for t, v := range snap {
		p.metrics.RecordSentiment(t, v)
	}
	for _, s := range sinks {
		s.PublishSnapshot(ctx, snap.Clone())
	}
	return true
}

// Latest returns a copy of the last published snapshot.
func (p *Publisher) Latest() (types.SentimentSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last.Clone(), p.published
}

// Filtered is the display view of the latest snapshot, see FilterForDisplay.
func (p *Publisher) Filtered(threshold float64) []Score {
	snap, _ := p.Latest()
	return FilterForDisplay(snap, threshold)
}

// FilterForDisplay keeps scores with |v| >= threshold/2, highest first.
func FilterForDisplay(snap types.SentimentSnapshot, threshold float64) []Score {
	out := make([]Score, 0, len(snap))
	for t, v := range snap {
		if math.Abs(v) >= threshold/2 {
			out = append(out, Score{Ticker: t, Score: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Score > out[j].Score
	})
	return out
}
