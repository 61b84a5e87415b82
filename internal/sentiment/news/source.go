package news

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

var ErrNoScores = errors.New("no sentiment scores available")

// Config configures the headline sentiment source.
type Config struct {
	FeedURL     string        // template with one %s for the ticker
	AssetClass  string        // selects the lexicon
	MaxArticles int           // headlines scored per ticker
	CacheTTL    time.Duration // 0 disables caching
	Timeout     time.Duration // per feed request
	Concurrency int           // parallel feed requests
}

func DefaultConfig() Config {
	return Config{
		FeedURL:     "https://news.google.com/rss/search?q=%s+stock&hl=en-US&gl=US&ceid=US:en",
		AssetClass:  "stock",
		MaxArticles: 20,
		CacheTTL:    10 * time.Minute,
		Timeout:     20 * time.Second,
		Concurrency: 4,
	}
}

// Source scores tickers by the mean headline sentiment of their news feed.
type Source struct {
	cfg     Config
	scraper *Scraper
	lexicon *Lexicon
	cache   *scoreCache
}

var _ interfaces.SentimentSource = (*Source)(nil)

func New(cfg Config) *Source {
	def := DefaultConfig()
	if cfg.FeedURL == "" {
		cfg.FeedURL = def.FeedURL
	}
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = def.MaxArticles
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Source{
		cfg:     cfg,
		scraper: NewScraper(cfg.FeedURL, cfg.Timeout),
		lexicon: NewLexicon(cfg.AssetClass),
		cache:   newScoreCache(cfg.CacheTTL, time.Now),
	}
}

// Scores returns one score per ticker that could be fetched. Tickers whose
// feed fails are left out; the call only fails when every ticker fails.
func (s *Source) Scores(ctx context.Context, tickers []string) (types.SentimentSnapshot, error) {
	snap := make(types.SentimentSnapshot, len(tickers))
	if len(tickers) == 0 {
		return snap, nil
	}

	var (
		mu      sync.Mutex
		lastErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			score, err := s.score(gctx, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				logger.Warn(gctx, "Sentiment unavailable for ticker", "ticker", ticker, "error", err)
				return nil
			}
			snap[ticker] = score
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(snap) == 0 {
		return nil, fmt.Errorf("%w: %d tickers failed, last error: %w", ErrNoScores, len(tickers), lastErr)
	}
	return snap, nil
}

func (s *Source) score(ctx context.Context, ticker string) (float64, error) {
	if cached, ok := s.cache.get(ticker); ok {
		logger.Debug(ctx, "Using cached sentiment", "ticker", ticker, "score", cached.score, "articles", cached.articles)
		return cached.score, nil
	}

	op := logger.StartOperation(ctx, "news.Headlines", "ticker", ticker)
	headlines, err := s.scraper.Headlines(op.GetContext(), ticker, s.cfg.MaxArticles)
	if err != nil {
		op.EndWithError(err)
		return 0, err
	}
	op.End("articles", len(headlines))

	score := s.ScoreHeadlines(headlines)
	s.cache.set(ticker, score, len(headlines))
	logger.Debug(ctx, "Scored headlines", "ticker", ticker, "score", score, "articles", len(headlines))
	return score, nil
}

// ScoreHeadlines is the mean compound score. No headlines means neutral.
func (s *Source) ScoreHeadlines(headlines []Headline) float64 {
	if len(headlines) == 0 {
		return 0
	}
	var total float64
	for _, h := range headlines {
		total += s.lexicon.Score(h.Text())
	}
	return total / float64(len(headlines))
}
