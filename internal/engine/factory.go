package engine

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/strategy"
)

// Confirmer asks an operator a question and waits for the answer.
type Confirmer interface {
	Request(ctx context.Context, text string) (string, error)
}

// StrategyFactory builds the evaluator for one run.
type StrategyFactory func(Settings) (interfaces.Strategy, error)

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithPublisher(p *Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) { e.confirmer = c }
}

func WithJournal(j interfaces.TradeJournal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithNotifier(n interfaces.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithStrategyFactory(f StrategyFactory) Option {
	return func(e *Engine) { e.newStrategy = f }
}

// WithCycleWrapper decorates the cycle runner the loop calls, e.g. engineobs.Wrap.
func WithCycleWrapper(wrap func(interfaces.Engine) interfaces.Engine) Option {
	return func(e *Engine) { e.wrap = wrap }
}

func New(exec interfaces.Executor, source interfaces.SentimentSource, opts ...Option) *Engine {
	e := &Engine{
		exec:        exec,
		source:      source,
		now:         time.Now,
		state:       StateStopped,
		newStrategy: DefaultStrategy,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.publisher == nil {
		e.publisher = NewPublisher(e.metrics)
	}
	e.runner = e
	if e.wrap != nil {
		e.runner = e.wrap(e)
	}
	return e
}

// DefaultStrategy is the sentiment evaluator configured from s.
func DefaultStrategy(s Settings) (interfaces.Strategy, error) {
	return strategy.NewSentiment(s.StrategyID, s.Mapping, s.Risk)
}
