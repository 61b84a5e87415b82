package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sentiment-trader/internal/eod"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
)

const eodCheckInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := initializeSystem(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer shutdownTracing(os.Stderr, logger.Shutdown)

	logger.Info(ctx, "Logging configured",
		"detailed", logger.IsDebugEnabled(),
		"tracing", trace.Enabled(),
	)

	cfg, settings, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	c, err := initializeComponents(ctx, cfg, settings)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize components", err)
		return err
	}
	compressOldLogs(ctx, c.journal, cfg.Logs.RetentionDays)

	g, gctx := errgroup.WithContext(ctx)

	if c.live != nil {
		g.Go(func() error { return c.live.Start(gctx) })
	}
	g.Go(func() error { return c.server.Start(gctx) })
	g.Go(func() error { return c.console.run(gctx) })
	g.Go(func() error { return runEOD(gctx) })
	g.Go(func() error {
		if err := c.engine.Start(gctx, settings); err != nil {
			return err
		}
		logger.Info(gctx, "Trader started", "mode", cfg.Mode, "addr", c.server.Addr())
		<-gctx.Done()
		c.engine.Stop()
		c.engine.Wait()
		return nil
	})

	err = g.Wait()
	logger.Info(context.Background(), "Shutting down...")
	summarize(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorWithErr(context.Background(), "Trader stopped with error", err)
		return err
	}
	return nil
}

// shutdownTracing flushes spans and reports a failed flush on w, since the
// logger may already be gone.
func shutdownTracing(w io.Writer, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		fmt.Fprintln(w, "logger shutdown:", err)
	}
}

// runEOD writes the day's CSV once the window end has passed.
func runEOD(ctx context.Context) error {
	t := time.NewTicker(eodCheckInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				summarize(ctx)
			}
		}
	}
}

func summarize(ctx context.Context) {
	if p, err := eod.SummarizeToday(); err == nil && p != "" {
		logger.Info(ctx, "EOD CSV written", "path", p)
	}
}
