package engine

import (
	"context"
	"fmt"
	"time"

	"sentiment-trader/internal/confirm"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

const (
	statusSubmitted = "SUBMITTED"
	statusFailed    = "FAILED"
	statusDeclined  = "DECLINED"
)

// execute hands signals to the executor in order. A failed or declined
// signal never stops the ones after it.
func (e *Engine) execute(ctx context.Context, s Settings, signals []types.TradeSignal, askFirst bool, report *types.CycleReport) {
	for _, sig := range signals {
		e.metrics.RecordSignal(string(sig.Action))

		if askFirst && !e.confirm(ctx, sig) {
			report.Declined++
			e.record(sig, types.Ack{}, statusDeclined, nil)
			continue
		}

		ack, err := e.exec.Submit(ctx, sig)
		if err != nil {
			report.Failed++
			e.metrics.RecordSubmitFailure(string(sig.Action))
			logger.ErrorWithErr(ctx, "Signal submission failed", err,
				"symbol", sig.Symbol,
				"action", string(sig.Action),
			)
			e.record(sig, types.Ack{}, statusFailed, err)
			continue
		}

		report.Submitted++
		logger.Trade(ctx, sig.Symbol, string(sig.Action), ack.OrderID,
			"status", ack.Status,
			"price", ack.Price,
			"volume", ack.Volume,
		)
		e.record(sig, ack, statusSubmitted, nil)
		e.notify(ctx, s, fmt.Sprintf("%s %s", sig.Action, sig.Symbol),
			fmt.Sprintf("order %s %s at %.4f (score %.3f)", ack.OrderID, ack.Status, ack.Price, sig.Score))
	}
}

func (e *Engine) confirm(ctx context.Context, sig types.TradeSignal) bool {
	text := fmt.Sprintf("%s %s", sig.Action, sig.Symbol)
	if sig.Ticker != "" {
		text += fmt.Sprintf(" (%s, sentiment %.3f)", sig.Ticker, sig.Score)
	}
	text += "? [y/N]"

	asked := time.Now()
	answer, err := e.confirmer.Request(ctx, text)
	if err != nil {
		logger.Warn(ctx, "Confirmation not received", "symbol", sig.Symbol, "action", string(sig.Action), "error", err)
		e.metrics.RecordConfirmation(time.Since(asked), false)
		return false
	}
	ok := confirm.ParseYes(answer)
	e.metrics.RecordConfirmation(time.Since(asked), ok)
	if !ok {
		logger.Info(ctx, "Signal declined by operator", "symbol", sig.Symbol, "action", string(sig.Action), "answer", answer)
	}
	return ok
}

func (e *Engine) record(sig types.TradeSignal, ack types.Ack, status string, err error) {
	if e.journal == nil {
		return
	}
	rec := types.TradeRecord{
		StrategyID: sig.StrategyID,
		Symbol:     sig.Symbol,
		Ticker:     sig.Ticker,
		Action:     sig.Action,
		Score:      sig.Score,
		OrderID:    ack.OrderID,
		Status:     status,
		Price:      ack.Price,
		Volume:     ack.Volume,
		Reason:     sig.Reason,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := e.journal.Append(rec); jerr != nil {
		logger.ErrorWithErr(context.Background(), "Failed to append trade journal", jerr, "symbol", sig.Symbol)
	}
}

func (e *Engine) notify(ctx context.Context, s Settings, title, msg string) {
	if !s.Notifications || e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, title, msg); err != nil {
		logger.Warn(ctx, "Notification failed", "title", title, "error", err)
	}
}
