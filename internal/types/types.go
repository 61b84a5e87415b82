package types

import (
	"maps"
	"sort"
	"time"
)

// SentimentSnapshot maps a sentiment-source ticker to its latest score.
// A new snapshot fully replaces the previous one; callers treat it as read-only.
type SentimentSnapshot map[string]float64

func (s SentimentSnapshot) Clone() SentimentSnapshot {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Equal reports whether both snapshots hold the same tickers with the same scores.
func (s SentimentSnapshot) Equal(other SentimentSnapshot) bool {
	return maps.Equal(s, other)
}

// Tickers returns the snapshot keys sorted.
func (s SentimentSnapshot) Tickers() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

type Action string

const (
	EnterLong  Action = "ENTER_LONG"
	EnterShort Action = "ENTER_SHORT"
	ExitLong   Action = "EXIT_LONG"
	ExitShort  Action = "EXIT_SHORT"
)

func (a Action) IsEntry() bool {
	return a == EnterLong || a == EnterShort
}

func (a Action) IsExit() bool {
	return a == ExitLong || a == ExitShort
}

// Side returns the position side the action opens or closes.
func (a Action) Side() Side {
	if a == EnterShort || a == ExitShort {
		return SideShort
	}
	return SideLong
}

func (a Action) Valid() bool {
	switch a {
	case EnterLong, EnterShort, ExitLong, ExitShort:
		return true
	}
	return false
}

// Position is one open lot held by the broker.
type Position struct {
	Ticket     string    `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	StrategyID string    `json:"strategy_id"`
	EntryPrice float64   `json:"entry_price"`
	Volume     float64   `json:"volume"`
	OpenedAt   time.Time `json:"opened_at,omitempty"`
}

// SymbolPositions is the open exposure on one broker symbol split by side.
type SymbolPositions struct {
	Long  []Position
	Short []Position
}

// MinLongEntry is the lowest entry price among the longs. ok is false when there are none.
func (sp SymbolPositions) MinLongEntry() (float64, bool) {
	if len(sp.Long) == 0 {
		return 0, false
	}
	m := sp.Long[0].EntryPrice
	for _, p := range sp.Long[1:] {
		if p.EntryPrice < m {
			m = p.EntryPrice
		}
	}
	return m, true
}

// MaxShortEntry is the highest entry price among the shorts.
func (sp SymbolPositions) MaxShortEntry() (float64, bool) {
	if len(sp.Short) == 0 {
		return 0, false
	}
	m := sp.Short[0].EntryPrice
	for _, p := range sp.Short[1:] {
		if p.EntryPrice > m {
			m = p.EntryPrice
		}
	}
	return m, true
}

// GroupBySymbol splits positions per broker symbol, keeping only those tagged strategyID.
func GroupBySymbol(positions []Position, strategyID string) map[string]SymbolPositions {
	out := make(map[string]SymbolPositions)
	for _, p := range positions {
		if p.StrategyID != strategyID {
			continue
		}
		sp := out[p.Symbol]
		switch p.Side {
		case SideLong:
			sp.Long = append(sp.Long, p)
		case SideShort:
			sp.Short = append(sp.Short, p)
		default:
			continue
		}
		out[p.Symbol] = sp
	}
	return out
}

// CountTagged counts positions carrying strategyID.
func CountTagged(positions []Position, strategyID string) int {
	n := 0
	for _, p := range positions {
		if p.StrategyID == strategyID {
			n++
		}
	}
	return n
}

// TradeSignal is a one-shot instruction for the executor. An exit with a
// Ticket closes that lot only; without one it closes every lot on that side.
type TradeSignal struct {
	StrategyID string  `json:"strategy_id"`
	Symbol     string  `json:"symbol"`
	Action     Action  `json:"action"`
	Ticket     string  `json:"ticket,omitempty"`
	Ticker     string  `json:"ticker,omitempty"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason,omitempty"`
}

// Ack is the broker acknowledgement of a submitted signal.
type Ack struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"status"`
	Price   float64 `json:"price,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
	Message string  `json:"message,omitempty"`
}

type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

func (q Quote) Valid() bool {
	return q.Bid > 0 && q.Ask > 0
}

// Prompt is a confirmation request waiting for an operator answer.
type Prompt struct {
	ID      uint64    `json:"id"`
	Text    string    `json:"text"`
	AskedAt time.Time `json:"asked_at"`
}

// CycleInput is everything the evaluator needs for one cycle. Quotes are keyed
// by broker symbol and only cover symbols the evaluator may need to price.
type CycleInput struct {
	Snapshot  SentimentSnapshot
	Positions []Position
	Quotes    map[string]Quote
}

// CycleReport summarises one engine tick.
type CycleReport struct {
	StartedAt time.Time     `json:"started_at"`
	Phase     string        `json:"phase"`
	Skipped   bool          `json:"skipped"`
	Reason    string        `json:"reason,omitempty"`
	Positions int           `json:"positions"`
	Signals   []TradeSignal `json:"signals"`
	Submitted int           `json:"submitted"`
	Declined  int           `json:"declined"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// TradeRecord is one journal line: a signal and what the broker did with it.
type TradeRecord struct {
	Time       string  `json:"time"`
	StrategyID string  `json:"strategy_id"`
	Symbol     string  `json:"symbol"`
	Ticker     string  `json:"ticker,omitempty"`
	Action     Action  `json:"action"`
	Score      float64 `json:"score"`
	OrderID    string  `json:"order_id,omitempty"`
	Status     string  `json:"status"`
	Price      float64 `json:"price,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
}
