// Package zerodha executes signals against a Kite Connect account.
package zerodha

import (
	"context"
	"errors"
	"fmt"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"sentiment-trader/internal/broker"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

var (
	ErrMissingCredentials = errors.New("missing API key/access token")
	ErrNoQuote            = errors.New("no quote")
	ErrNothingToClose     = errors.New("no open position to close")
)

const StatusPlaced = "PLACED"

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
	Product     string
	Sizer       broker.Sizer
	// Stream keeps quotes from the websocket ticker for Symbols.
	Stream  bool
	Symbols []string
}

// kiteAPI is the part of the Kite Connect client the broker needs.
type kiteAPI interface {
	GetQuote(instruments ...string) (kiteconnect.Quote, error)
	GetOrders() (kiteconnect.Orders, error)
	GetPositions() (kiteconnect.Positions, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
}

type Zerodha struct {
	p      Params
	kc     kiteAPI
	mapper *instrumentMapper
	stream *quoteStream
}

var _ interfaces.Executor = (*Zerodha)(nil)

func NewZerodha(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, ErrMissingCredentials
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return newZerodha(p, kc), nil
}

func newZerodha(p Params, kc kiteAPI) *Zerodha {
	if p.Exchange == "" {
		p.Exchange = kiteconnect.ExchangeNSE
	}
	if p.Product == "" {
		p.Product = kiteconnect.ProductMIS
	}
	z := &Zerodha{p: p, kc: kc, mapper: newInstrumentMapper()}
	if p.Stream {
		z.stream = newQuoteStream(p.APIKey, p.AccessToken, z.mapper)
	}
	return z
}

// Start loads instrument tokens and runs the quote stream until ctx is done.
// Without streaming it returns immediately.
func (z *Zerodha) Start(ctx context.Context) error {
	if z.stream == nil || len(z.p.Symbols) == 0 {
		return nil
	}
	instruments, err := z.kc.GetInstrumentsByExchange(z.p.Exchange)
	if err != nil {
		return fmt.Errorf("failed to load instruments: %w", err)
	}
	if missing := z.mapper.load(instruments, z.p.Symbols); len(missing) > 0 {
		logger.Warn(ctx, "Symbols not listed on exchange", "exchange", z.p.Exchange, "symbols", missing)
	}

	z.stream.serve(ctx)
	return nil
}

func (z *Zerodha) instrument(symbol string) string {
	return z.p.Exchange + ":" + symbol
}

func (z *Zerodha) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	if z.stream != nil {
		if q, ok := z.stream.quote(symbol); ok {
			return q, nil
		}
	}

	key := z.instrument(symbol)
	quotes, err := z.kc.GetQuote(key)
	if err != nil {
		return types.Quote{}, fmt.Errorf("quote %s: %w", key, err)
	}
	data, ok := quotes[key]
	if !ok {
		return types.Quote{}, fmt.Errorf("%w for %s", ErrNoQuote, key)
	}
	q, ok := depthQuote(data.Depth, data.LastPrice)
	if !ok {
		return types.Quote{}, fmt.Errorf("%w for %s", ErrNoQuote, key)
	}
	return q, nil
}

// OpenPositions rebuilds the strategy's lots from the overnight net positions
// and today's tagged orders.
func (z *Zerodha) OpenPositions(ctx context.Context, strategyID string) ([]types.Position, error) {
	positions, err := z.kc.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}
	orders, err := z.kc.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	carried := carriedLots(positions, z.p.Exchange, z.p.Product, z.p.Symbols, strategyID)
	return rebuildLots(carried, orders, z.p.Exchange, orderTag(strategyID), strategyID), nil
}

func (z *Zerodha) Submit(ctx context.Context, sig types.TradeSignal) (types.Ack, error) {
	var (
		txn    string
		qty    int
		price  float64
		reduce = sig.Action.IsExit()
	)

	switch sig.Action {
	case types.EnterLong, types.ExitShort:
		txn = kiteconnect.TransactionTypeBuy
	case types.EnterShort, types.ExitLong:
		txn = kiteconnect.TransactionTypeSell
	default:
		return types.Ack{}, fmt.Errorf("unknown action %q", sig.Action)
	}

	if reduce {
		lots, err := z.OpenPositions(ctx, sig.StrategyID)
		if err != nil {
			return types.Ack{}, err
		}
		var volume float64
		for _, p := range lots {
			if p.Symbol == sig.Symbol && p.Side == sig.Action.Side() && (sig.Ticket == "" || p.Ticket == sig.Ticket) {
				volume += p.Volume
			}
		}
		if volume == 0 {
			return types.Ack{}, fmt.Errorf("%w: %s %s", ErrNothingToClose, sig.Symbol, sig.Action.Side())
		}
		qty = int(volume)
	} else {
		q, err := z.Quote(ctx, sig.Symbol)
		if err != nil {
			return types.Ack{}, err
		}
		price = q.Ask
		if txn == kiteconnect.TransactionTypeSell {
			price = q.Bid
		}
		if qty, err = z.p.Sizer.Quantity(price); err != nil {
			return types.Ack{}, err
		}
	}

	params := kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   sig.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         z.p.Product,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: txn,
		Quantity:        qty,
		Tag:             orderTag(sig.StrategyID),
	}
	op := logger.StartOperation(ctx, "zerodha.PlaceOrder",
		"symbol", sig.Symbol,
		"transaction", txn,
		"qty", qty,
	)
	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		err = fmt.Errorf("place order %s %s: %w", txn, sig.Symbol, err)
		op.EndWithError(err)
		return types.Ack{}, err
	}
	logger.Info(op.GetContext(), "Live order placed",
		"symbol", sig.Symbol,
		"action", sig.Action,
		"transaction", txn,
		"qty", qty,
		"order_id", resp.OrderID,
	)
	op.End("order_id", resp.OrderID)
	return types.Ack{
		OrderID: resp.OrderID,
		Status:  StatusPlaced,
		Price:   price,
		Volume:  float64(qty),
	}, nil
}
