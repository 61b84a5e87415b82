package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/symbols"
	"sentiment-trader/internal/types"
)

const (
	Name        = "BBS@STS"
	Description = "Sentiment Trading Strategy"
)

// Sentiment turns sentiment scores into entries and exits. It is stateless
// between calls: positions and quotes come in with every CycleInput.
type Sentiment struct {
	id      string
	mapping *symbols.Mapping
	risk    RiskConfig
	gate    Gate
}

var _ interfaces.Strategy = (*Sentiment)(nil)

func NewSentiment(id string, mapping *symbols.Mapping, risk RiskConfig) (*Sentiment, error) {
	if id == "" {
		return nil, errors.New("strategy id is required")
	}
	if err := risk.Validate(); err != nil {
		return nil, err
	}
	return &Sentiment{
		id:      id,
		mapping: mapping,
		risk:    risk,
		gate:    NewGate(id, risk.MaxPositions),
	}, nil
}

func (s *Sentiment) ID() string { return s.id }

func (s *Sentiment) Risk() RiskConfig { return s.risk }

// Evaluate walks the snapshot in mapping order. Per symbol, exits are
// decided before entries and are never capped; entries need the gate to
// report capacity for the ledger snapshot. With CapWithinCycle the cycle's
// own entries count against the gate as well.
func (s *Sentiment) Evaluate(ctx context.Context, in types.CycleInput) []types.TradeSignal {
	if s.mapping.Len() == 0 || len(in.Snapshot) == 0 {
		return nil
	}

	groups := types.GroupBySymbol(in.Positions, s.id)
	remaining := s.gate.Remaining(in.Positions)
	hasCapacity := s.gate.HasCapacity(in.Positions)
	if !hasCapacity {
		logger.Risk(ctx, "*", "max_positions_reached",
			"strategy_id", s.id,
			"max_positions", s.risk.MaxPositions,
		)
	}

	var out []types.TradeSignal
	for _, ticker := range s.order(in.Snapshot) {
		score := in.Snapshot[ticker]
		symbol, ok := s.mapping.BrokerSymbol(ticker)
		if !ok {
			logger.Warn(ctx, "Skipping unmapped ticker", "ticker", ticker, "error", symbols.ErrUnmapped)
			continue
		}

		pos := groups[symbol]
		quote, hasQuote := in.Quotes[symbol]
		if (len(pos.Long) > 0 || len(pos.Short) > 0) && !hasQuote {
			logger.Warn(ctx, "Skipping symbol without a quote", "symbol", symbol, "ticker", ticker)
			continue
		}

		emit := func(a types.Action, reason string) {
			sig := types.TradeSignal{
				StrategyID: s.id,
				Symbol:     symbol,
				Action:     a,
				Ticker:     ticker,
				Score:      score,
				Reason:     reason,
			}
			logger.Signal(ctx, s.id, symbol, string(a), score, "ticker", ticker, "reason", reason)
			out = append(out, sig)
		}

		if reason, ok := s.exitLong(pos, quote, score); ok {
			emit(types.ExitLong, reason)
		}
		if reason, ok := s.exitShort(pos, quote, score); ok {
			emit(types.ExitShort, reason)
		}

		canEnter := func() bool {
			if s.risk.CapWithinCycle {
				return remaining > 0
			}
			return hasCapacity
		}
		if canEnter() {
			if reason, ok := s.enterLong(symbol, pos, quote, score); ok {
				emit(types.EnterLong, reason)
				remaining--
			}
		}
		if canEnter() {
			if reason, ok := s.enterShort(symbol, pos, quote, score); ok {
				emit(types.EnterShort, reason)
				remaining--
			}
		}
	}
	return out
}

func (s *Sentiment) exitLong(pos types.SymbolPositions, q types.Quote, score float64) (string, bool) {
	ref, ok := pos.MinLongEntry()
	if !ok {
		return "", false
	}
	if move := PctChange(q.Ask, ref); move <= -s.risk.HalfReturn() {
		return fmt.Sprintf("long moved %.2f%% from %.4f", move, ref), true
	}
	if score <= -s.risk.ExitThreshold() {
		return fmt.Sprintf("sentiment %.3f <= %.3f", score, -s.risk.ExitThreshold()), true
	}
	return "", false
}

func (s *Sentiment) exitShort(pos types.SymbolPositions, q types.Quote, score float64) (string, bool) {
	ref, ok := pos.MaxShortEntry()
	if !ok {
		return "", false
	}
	if move := PctChange(q.Bid, ref); move >= s.risk.HalfReturn() {
		return fmt.Sprintf("short moved %.2f%% from %.4f", move, ref), true
	}
	if score >= s.risk.Threshold {
		return fmt.Sprintf("sentiment %.3f >= %.3f", score, s.risk.Threshold), true
	}
	return "", false
}

func (s *Sentiment) enterLong(symbol string, pos types.SymbolPositions, q types.Quote, score float64) (string, bool) {
	if score < s.risk.Threshold {
		return "", false
	}
	n := len(pos.Long)
	if n == 0 {
		return fmt.Sprintf("sentiment %.3f >= %.3f", score, s.risk.Threshold), true
	}
	if n > s.risk.MaxTrades {
		return "", false
	}
	ref, _ := pos.MinLongEntry()
	if move := PctChange(q.Ask, ref); move <= -s.risk.HalfReturn() {
		return fmt.Sprintf("averaging down %d/%d on %s, moved %.2f%%", n, s.risk.MaxTrades, symbol, move), true
	}
	return "", false
}

func (s *Sentiment) enterShort(symbol string, pos types.SymbolPositions, q types.Quote, score float64) (string, bool) {
	if score > -s.risk.ExitThreshold() {
		return "", false
	}
	n := len(pos.Short)
	if n == 0 {
		return fmt.Sprintf("sentiment %.3f <= %.3f", score, -s.risk.ExitThreshold()), true
	}
	if n > s.risk.MaxTrades {
		return "", false
	}
	ref, _ := pos.MaxShortEntry()
	if move := PctChange(q.Bid, ref); move >= s.risk.HalfReturn() {
		return fmt.Sprintf("averaging up %d/%d on %s, moved %.2f%%", n, s.risk.MaxTrades, symbol, move), true
	}
	return "", false
}

// Flatten closes every open lot tagged with the strategy id, one exit per
// lot, mapped symbols first in mapping order.
func (s *Sentiment) Flatten(ctx context.Context, positions []types.Position) []types.TradeSignal {
	groups := types.GroupBySymbol(positions, s.id)
	if len(groups) == 0 {
		return nil
	}

	order := make([]string, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for _, sym := range s.mapping.Symbols() {
		if _, ok := groups[sym]; ok {
			order = append(order, sym)
			seen[sym] = true
		}
	}
	var extra []string
	for sym := range groups {
		if !seen[sym] {
			extra = append(extra, sym)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	var out []types.TradeSignal
	for _, sym := range order {
		ticker, _ := s.mapping.Ticker(sym)
		g := groups[sym]
		for _, p := range g.Long {
			out = append(out, s.flattenSignal(p, types.ExitLong, ticker))
		}
		for _, p := range g.Short {
			out = append(out, s.flattenSignal(p, types.ExitShort, ticker))
		}
	}
	logger.Risk(ctx, "*", "flatten", "strategy_id", s.id, "exits", len(out))
	return out
}

func (s *Sentiment) flattenSignal(p types.Position, a types.Action, ticker string) types.TradeSignal {
	return types.TradeSignal{
		StrategyID: s.id,
		Symbol:     p.Symbol,
		Action:     a,
		Ticket:     p.Ticket,
		Ticker:     ticker,
		Reason:     "trading window end",
	}
}

// order yields the snapshot tickers in mapping order, then any tickers the
// mapping does not know, sorted so the skip logs are stable.
func (s *Sentiment) order(snap types.SentimentSnapshot) []string {
	out := make([]string, 0, len(snap))
	for _, t := range s.mapping.Tickers() {
		if _, ok := snap[t]; ok {
			out = append(out, t)
		}
	}
	if len(out) == len(snap) {
		return out
	}
	for _, t := range snap.Tickers() {
		if _, ok := s.mapping.BrokerSymbol(t); !ok {
			out = append(out, t)
		}
	}
	return out
}
