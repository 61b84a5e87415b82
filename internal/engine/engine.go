package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/types"
)

type State string

const (
	StateStopped  State = "STOPPED"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
)

var (
	ErrNotStarted           = errors.New("engine has no settings; call Start first")
	ErrSentimentUnavailable = errors.New("sentiment source failed")
	ErrPositionsUnavailable = errors.New("open positions unavailable")
)

// Status is a point-in-time view for the display server.
type Status struct {
	State      State              `json:"state"`
	StrategyID string             `json:"strategy_id,omitempty"`
	Phase      string             `json:"phase"`
	Interval   string             `json:"interval,omitempty"`
	AutoTrade  bool               `json:"auto_trade"`
	LastCycle  *types.CycleReport `json:"last_cycle,omitempty"`
}

// Engine runs the strategy on a fixed cadence inside the trading window.
// One loop runs at a time; Start on a running engine stops the old loop first.
type Engine struct {
	exec        interfaces.Executor
	source      interfaces.SentimentSource
	confirmer   Confirmer
	publisher   *Publisher
	metrics     *metrics.Recorder
	journal     interfaces.TradeJournal
	notifier    interfaces.Notifier
	now         func() time.Time
	newStrategy StrategyFactory
	wrap        func(interfaces.Engine) interfaces.Engine
	runner      interfaces.Engine

	startMu sync.Mutex
	cycleMu sync.Mutex

	mu       sync.Mutex
	state    State
	settings Settings
	strat    interfaces.Strategy
	cancel   context.CancelFunc
	done     chan struct{}
	last     *types.CycleReport
}

var _ interfaces.Engine = (*Engine)(nil)

// Start validates s and launches the loop. The first cycle runs immediately.
// Stopping the loop never cancels ctx-bound work already in flight; cancelling
// ctx itself does.
func (e *Engine) Start(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.AutoTrade && e.confirmer == nil {
		return fmt.Errorf("%w: auto trade is off and no confirmer is attached", ErrInvalidSettings)
	}
	strat, err := e.newStrategy(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	if e.State() != StateStopped {
		logger.Info(ctx, "Restarting engine, stopping previous run")
		e.Stop()
		e.Wait()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	e.mu.Lock()
	e.settings = s
	e.strat = strat
	e.cancel = cancel
	e.done = done
	e.state = StateRunning
	e.mu.Unlock()

	if s.Debug {
		logger.EnableDetailed(true)
	}
	logger.Info(ctx, "Engine started",
		"strategy_id", s.StrategyID,
		"symbols", s.Mapping.Len(),
		"interval", s.Window.Interval.String(),
		"period", string(s.Window.Period),
		"auto_trade", s.AutoTrade,
	)

	go e.loop(loopCtx, ctx, s.Window.Interval, done)
	return nil
}

// Stop ends the loop after any in-flight cycle. It does not wait; use Wait.
// Calling it on a stopped engine does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return
	}
	e.state = StateStopping
	e.cancel()
}

// Wait blocks until the current loop, if any, has exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Publisher() *Publisher {
	return e.publisher
}

func (e *Engine) Settings() (Settings, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings, e.strat != nil
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{State: e.state, Phase: PhaseClosed.String(), LastCycle: e.last}
	if e.strat != nil {
		st.StrategyID = e.settings.StrategyID
		st.Phase = e.settings.Window.PhaseAt(e.now()).String()
		st.Interval = e.settings.Window.Interval.String()
		st.AutoTrade = e.settings.AutoTrade
	}
	return st
}

// loop exits when loopCtx is cancelled. Cycles run on workCtx so that Stop
// lets the current one finish.
func (e *Engine) loop(loopCtx, workCtx context.Context, interval time.Duration, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.state = StateStopped
		e.mu.Unlock()
		close(done)
		logger.Info(workCtx, "Engine stopped")
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.tick(workCtx)
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			if loopCtx.Err() != nil {
				return
			}
			e.tick(workCtx)
			// A tick that fired during a slow cycle is dropped, not queued.
			select {
			case <-ticker.C:
				logger.Debug(workCtx, "Skipped tick while cycle was running")
			default:
			}
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if _, err := e.runner.RunCycle(ctx); err != nil && e.wrap == nil {
		logger.Warn(ctx, "Cycle failed", "error", err)
	}
}

// RunCycle performs one evaluation against the current settings. Errors are
// per-cycle and never stop the loop.
func (e *Engine) RunCycle(ctx context.Context) (types.CycleReport, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.mu.Lock()
	s, strat := e.settings, e.strat
	e.mu.Unlock()
	if strat == nil {
		return types.CycleReport{}, ErrNotStarted
	}

	started := e.now()
	phase := s.Window.PhaseAt(started)
	report := types.CycleReport{StartedAt: started, Phase: phase.String()}

	err := e.runPhase(ctx, s, strat, phase, &report)
	if d := e.now().Sub(started); d > 0 {
		report.Duration = d
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case report.Skipped:
		outcome = "skipped"
	}
	e.metrics.RecordCycle(report.Phase, outcome, report.Duration)

	e.mu.Lock()
	r := report
	e.last = &r
	e.mu.Unlock()
	return report, err
}

func (e *Engine) runPhase(ctx context.Context, s Settings, strat interfaces.Strategy, phase Phase, report *types.CycleReport) error {
	if phase == PhaseClosed {
		report.Skipped = true
		report.Reason = "outside trading window"
		return nil
	}

	positions, err := e.exec.OpenPositions(ctx, s.StrategyID)
	if err != nil {
		report.Skipped = true
		report.Reason = "positions unavailable"
		return fmt.Errorf("%w: %w", ErrPositionsUnavailable, err)
	}
	report.Positions = types.CountTagged(positions, s.StrategyID)
	e.metrics.SetOpenPositions(report.Positions)

	if phase == PhaseFlatten {
		signals := strat.Flatten(ctx, positions)
		report.Signals = signals
		if len(signals) > 0 {
			e.notify(ctx, s, "Trading window closed",
				fmt.Sprintf("Closing %d position(s) for %s", len(signals), s.StrategyID))
		}
		e.execute(ctx, s, signals, false, report)
		return nil
	}

	if s.Mapping.Len() == 0 {
		report.Skipped = true
		report.Reason = "no tradable symbols"
		return nil
	}

	snap, err := e.source.Scores(ctx, s.Mapping.Tickers())
	if err != nil {
		e.metrics.RecordSourceFailure()
		report.Skipped = true
		report.Reason = "sentiment unavailable"
		return fmt.Errorf("%w: %w", ErrSentimentUnavailable, err)
	}
	e.publisher.Publish(ctx, snap)

	signals := strat.Evaluate(ctx, types.CycleInput{
		Snapshot:  snap,
		Positions: positions,
		Quotes:    e.quotes(ctx, s.StrategyID, positions),
	})
	if phase == PhaseExitsOnly {
		signals = exitsOnly(ctx, signals)
	}
	report.Signals = signals
	e.execute(ctx, s, signals, !s.AutoTrade, report)
	return nil
}

func exitsOnly(ctx context.Context, signals []types.TradeSignal) []types.TradeSignal {
	out := signals[:0:0]
	for _, sig := range signals {
		if sig.Action.IsEntry() {
			logger.Debug(ctx, "Suppressing entry after finish time", "symbol", sig.Symbol, "action", string(sig.Action))
			continue
		}
		out = append(out, sig)
	}
	return out
}
