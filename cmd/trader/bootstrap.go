package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sentiment-trader/internal/broker"
	"sentiment-trader/internal/broker/brokerobs"
	"sentiment-trader/internal/broker/paper"
	"sentiment-trader/internal/broker/zerodha"
	"sentiment-trader/internal/confirm"
	"sentiment-trader/internal/display"
	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/engine/engineobs"
	"sentiment-trader/internal/eod"
	"sentiment-trader/internal/eod/eodobs"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/notify"
	"sentiment-trader/internal/sentiment/news"
	"sentiment-trader/internal/sentiment/sentimentobs"
	"sentiment-trader/internal/sentiment/static"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/strategy/strategyobs"
	"sentiment-trader/internal/tradelog"
)

// initializeSystem loads .env and sets up the logger.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func configPath() string {
	if p := os.Getenv("TRADER_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func loadConfig(ctx context.Context) (*store.Config, engine.Settings, error) {
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath())
		return nil, engine.Settings{}, err
	}
	s, err := cfg.Settings()
	if err != nil {
		return nil, engine.Settings{}, err
	}
	return cfg, s, nil
}

func sizerFor(cfg *store.Config) broker.Sizer {
	return broker.Sizer{
		MoneyManagement: cfg.Flags.MoneyManagement,
		Fixed:           cfg.Execution.Quantity,
		Capital:         cfg.Execution.Capital,
		RiskPct:         cfg.Execution.RiskPerTradePct,
	}
}

// initializeSource builds the sentiment source with observability.
func initializeSource(ctx context.Context, cfg *store.Config) interfaces.SentimentSource {
	var src interfaces.SentimentSource
	switch cfg.Sentiment.Provider {
	case "STATIC":
		logger.Warn(ctx, "Using STATIC sentiment scores from config")
		src = static.New(cfg.Sentiment.Static)
	default:
		nc := news.DefaultConfig()
		nc.FeedURL = cfg.Sentiment.FeedURL
		nc.AssetClass = cfg.Symbols.Type
		nc.MaxArticles = cfg.Sentiment.MaxArticles
		nc.CacheTTL = time.Duration(cfg.Sentiment.CacheMinutes) * time.Minute
		logger.Info(ctx, "Using news headline sentiment", "asset_class", nc.AssetClass, "cache", nc.CacheTTL.String())
		src = news.New(nc)
	}
	return sentimentobs.Wrap(src)
}

// initializeBroker returns the executor with observability and, for LIVE, the
// Zerodha client whose Start must run alongside the engine.
func initializeBroker(ctx context.Context, cfg *store.Config, s engine.Settings) (interfaces.Executor, *zerodha.Zerodha, error) {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		brk := paper.New(
			paper.WithSyntheticQuotes(time.Now().UnixNano()),
			paper.WithSizer(sizerFor(cfg)),
		)
		return brokerobs.Wrap(brk), nil, nil
	}

	z, err := zerodha.NewZerodha(zerodha.Params{
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Execution.Exchange,
		Product:     cfg.Execution.Product,
		Sizer:       sizerFor(cfg),
		Stream:      true,
		Symbols:     s.Mapping.Symbols(),
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "Using LIVE Zerodha execution", "exchange", cfg.Execution.Exchange, "product", cfg.Execution.Product)
	return brokerobs.Wrap(z), z, nil
}

// initializeNotifier returns nil when notifications are off or no webhook is set.
func initializeNotifier(ctx context.Context, cfg *store.Config) *notify.DiscordNotifier {
	if !cfg.Flags.Notifications {
		return nil
	}
	n := notify.NewDiscordNotifier(os.Getenv("DISCORD_WEBHOOK_URL"), cfg.Strategy.Name)
	if !n.Enabled() {
		logger.Warn(ctx, "Notifications enabled but DISCORD_WEBHOOK_URL is empty")
		return nil
	}
	return n
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

type components struct {
	engine  *engine.Engine
	bridge  *confirm.Bridge
	hub     *display.Hub
	server  *display.Server
	journal *tradelog.Journal
	live    *zerodha.Zerodha
	console *console
}

// initializeComponents wires source, executor, bridge, engine and display.
func initializeComponents(ctx context.Context, cfg *store.Config, s engine.Settings) (*components, error) {
	exec, live, err := initializeBroker(ctx, cfg, s)
	if err != nil {
		return nil, err
	}
	source := initializeSource(ctx, cfg)

	reg := newRegistry()
	rec := metrics.New(reg)

	bridge := confirm.New()
	hub := display.NewHub(s.Risk.Threshold, bridge)
	bridge.AddListener(hub)

	con := newConsole(os.Stdin, os.Stdout, bridge)
	bridge.AddListener(con)

	journal := tradelog.New(tradelog.LogDir(), s.Window.Location)
	publisher := engine.NewPublisher(rec, hub)

	opts := []engine.Option{
		engine.WithMetrics(rec),
		engine.WithPublisher(publisher),
		engine.WithConfirmer(bridge),
		engine.WithJournal(journal),
		engine.WithStrategyFactory(func(s engine.Settings) (interfaces.Strategy, error) {
			strat, err := engine.DefaultStrategy(s)
			if err != nil {
				return nil, err
			}
			return strategyobs.Wrap(strat), nil
		}),
		engine.WithCycleWrapper(func(e interfaces.Engine) interfaces.Engine {
			return engineobs.Wrap(journal.WrapEngine(e))
		}),
	}
	if n := initializeNotifier(ctx, cfg); n != nil {
		opts = append(opts, engine.WithNotifier(n))
		bridge.AddListener(n)
	}
	eng := engine.New(exec, source, opts...)

	server := display.NewServer(display.ServerConfig{
		Addr:      cfg.Server.Addr,
		Hub:       hub,
		Engine:    eng,
		Publisher: publisher,
		Bridge:    bridge,
		Threshold: s.Risk.Threshold,
		Gatherer:  reg,
	})

	initializeEOD(journal.Dir(), s)

	return &components{
		engine:  eng,
		bridge:  bridge,
		hub:     hub,
		server:  server,
		journal: journal,
		live:    live,
		console: con,
	}, nil
}

// initializeEOD wraps the default EOD summarizer with observability.
func initializeEOD(dir string, s engine.Settings) {
	base := eod.NewSummarizer(dir, s.Window.Location, s.Window.End)
	eod.SetDefaultSummarizer(eodobs.Wrap(base))
}

// compressOldLogs gzips journal files older than the configured retention.
func compressOldLogs(ctx context.Context, j *tradelog.Journal, days int) {
	if days <= 0 {
		return
	}
	if err := j.CompressOlder(days); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}
