// Package paper is an in-memory executor for dry runs. It fills every order
// at the current quote and keeps per-strategy lots.
package paper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-trader/internal/broker"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

var (
	ErrNoQuote        = errors.New("no quote")
	ErrNothingToClose = errors.New("no open position to close")
	ErrUnknownAction  = errors.New("unknown action")
)

const (
	StatusFilled = "FILLED"

	syntheticBase   = 1000.0
	syntheticSpread = 0.0005
)

type Option func(*Broker)

// WithClock sets the time source used to stamp lots.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// WithSyntheticQuotes makes symbols without an explicit quote follow a random
// walk around a fixed base price.
func WithSyntheticQuotes(seed int64) Option {
	return func(b *Broker) { b.rng = rand.New(rand.NewSource(seed)) }
}

// WithVolume sets the lot size of every entry.
func WithVolume(v float64) Option {
	return func(b *Broker) { b.volume = v }
}

// WithSizer sizes entries from their fill price instead of a fixed volume.
func WithSizer(s broker.Sizer) Option {
	return func(b *Broker) { b.sizer = &s }
}

type Broker struct {
	mu       sync.Mutex
	quotes   map[string]types.Quote
	lots     []types.Position
	realised map[string]decimal.Decimal
	seq      int
	volume   float64
	sizer    *broker.Sizer
	rng      *rand.Rand
	now      func() time.Time
}

var _ interfaces.Executor = (*Broker)(nil)

func New(opts ...Option) *Broker {
	b := &Broker{
		quotes:   make(map[string]types.Quote),
		realised: make(map[string]decimal.Decimal),
		volume:   1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetQuote pins the price of a symbol.
func (b *Broker) SetQuote(symbol string, q types.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[symbol] = q
}

// Seed adds an already open lot, e.g. one carried over from a previous run.
func (b *Broker) Seed(p types.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Ticket == "" {
		b.seq++
		p.Ticket = fmt.Sprintf("PAPER-%d", b.seq)
	}
	b.lots = append(b.lots, p)
}

func (b *Broker) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quoteLocked(symbol)
}

func (b *Broker) quoteLocked(symbol string) (types.Quote, error) {
	q, ok := b.quotes[symbol]
	if b.rng != nil {
		if ok {
			drift := 1 + (b.rng.Float64()-0.5)*0.002
			q = types.Quote{Bid: q.Bid * drift, Ask: q.Ask * drift}
		} else {
			mid := syntheticBase + b.rng.Float64()*100
			q = types.Quote{Bid: mid * (1 - syntheticSpread), Ask: mid * (1 + syntheticSpread)}
		}
		b.quotes[symbol] = q
		ok = true
	}
	if !ok || !q.Valid() {
		return types.Quote{}, fmt.Errorf("%w for %s", ErrNoQuote, symbol)
	}
	return q, nil
}

// OpenPositions returns the open lots tagged strategyID, oldest first.
func (b *Broker) OpenPositions(ctx context.Context, strategyID string) ([]types.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Position, 0, len(b.lots))
	for _, p := range b.lots {
		if p.StrategyID == strategyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *Broker) Submit(ctx context.Context, sig types.TradeSignal) (types.Ack, error) {
	if err := ctx.Err(); err != nil {
		return types.Ack{}, err
	}
	if !sig.Action.Valid() {
		return types.Ack{}, fmt.Errorf("%w: %q", ErrUnknownAction, sig.Action)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q, err := b.quoteLocked(sig.Symbol)
	if err != nil {
		return types.Ack{}, err
	}

	b.seq++
	orderID := fmt.Sprintf("PAPER-%d", b.seq)

	if sig.Action.IsEntry() {
		price := q.Ask
		if sig.Action == types.EnterShort {
			price = q.Bid
		}
		volume := b.volume
		if b.sizer != nil {
			n, err := b.sizer.Quantity(price)
			if err != nil {
				return types.Ack{}, err
			}
			volume = float64(n)
		}
		b.lots = append(b.lots, types.Position{
			Ticket:     orderID,
			Symbol:     sig.Symbol,
			Side:       sig.Action.Side(),
			StrategyID: sig.StrategyID,
			EntryPrice: price,
			Volume:     volume,
			OpenedAt:   b.now(),
		})
		logger.Debug(ctx, "Paper entry filled", "symbol", sig.Symbol, "action", sig.Action, "price", price, "order_id", orderID)
		return types.Ack{OrderID: orderID, Status: StatusFilled, Price: price, Volume: volume}, nil
	}

	// Longs are sold at the bid, shorts bought back at the ask.
	side := sig.Action.Side()
	price := q.Bid
	if side == types.SideShort {
		price = q.Ask
	}

	var (
		closed int
		volume float64
		pnl    = decimal.Zero
		kept   = b.lots[:0:0]
	)
	for _, p := range b.lots {
		match := p.StrategyID == sig.StrategyID && p.Symbol == sig.Symbol && p.Side == side &&
			(sig.Ticket == "" || p.Ticket == sig.Ticket)
		if !match {
			kept = append(kept, p)
			continue
		}
		closed++
		volume += p.Volume
		pnl = pnl.Add(lotPnL(p, price))
	}
	if closed == 0 {
		return types.Ack{}, fmt.Errorf("%w: %s %s", ErrNothingToClose, sig.Symbol, side)
	}
	b.lots = kept
	b.realised[sig.StrategyID] = b.realised[sig.StrategyID].Add(pnl)

	logger.Debug(ctx, "Paper exit filled",
		"symbol", sig.Symbol,
		"action", sig.Action,
		"lots", closed,
		"price", price,
		"pnl", pnl.StringFixed(2),
	)
	return types.Ack{
		OrderID: orderID,
		Status:  StatusFilled,
		Price:   price,
		Volume:  volume,
		Message: fmt.Sprintf("closed %d lots, pnl %s", closed, pnl.StringFixed(2)),
	}, nil
}

func lotPnL(p types.Position, exit float64) decimal.Decimal {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(p.EntryPrice))
	if p.Side == types.SideShort {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromFloat(p.Volume))
}

// Realised is the closed-lot profit of a strategy so far.
func (b *Broker) Realised(strategyID string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realised[strategyID]
}

// Unrealised marks every open lot of a strategy to the current quotes.
func (b *Broker) Unrealised(strategyID string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero
	for _, p := range b.lots {
		if p.StrategyID != strategyID {
			continue
		}
		q, ok := b.quotes[p.Symbol]
		if !ok {
			continue
		}
		mark := q.Bid
		if p.Side == types.SideShort {
			mark = q.Ask
		}
		total = total.Add(lotPnL(p, mark))
	}
	return total
}
