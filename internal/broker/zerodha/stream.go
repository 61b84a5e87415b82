package zerodha

import (
	"context"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// quotes older than this fall back to the REST API.
const maxQuoteAge = 10 * time.Second

type streamedQuote struct {
	quote types.Quote
	at    time.Time
}

// quoteStream keeps the best bid/ask of subscribed instruments from the
// websocket ticker in full mode.
type quoteStream struct {
	ticker *kiteticker.Ticker
	mapper *instrumentMapper
	now    func() time.Time

	mu     sync.RWMutex
	quotes map[string]streamedQuote
}

func newQuoteStream(apiKey, accessToken string, mapper *instrumentMapper) *quoteStream {
	qs := &quoteStream{
		mapper: mapper,
		now:    time.Now,
		quotes: make(map[string]streamedQuote),
	}
	if apiKey != "" {
		qs.ticker = kiteticker.New(apiKey, accessToken)
		qs.setupEventHandlers()
	}
	return qs
}

func (qs *quoteStream) setupEventHandlers() {
	qs.ticker.OnConnect(qs.onConnect)
	qs.ticker.OnError(qs.onError)
	qs.ticker.OnClose(qs.onClose)
	qs.ticker.OnReconnect(qs.onReconnect)
	qs.ticker.OnNoReconnect(qs.onNoReconnect)
	qs.ticker.OnTick(qs.onTick)
	qs.ticker.OnOrderUpdate(qs.onOrderUpdate)
}

// serve blocks until ctx is done.
func (qs *quoteStream) serve(ctx context.Context) {
	if qs.ticker == nil {
		return
	}
	logger.Info(ctx, "Starting Zerodha quote stream", "instruments", len(qs.mapper.getAllTokens()))
	qs.ticker.ServeWithContext(ctx)
}

func (qs *quoteStream) quote(symbol string) (types.Quote, bool) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()

	sq, ok := qs.quotes[symbol]
	if !ok || qs.now().Sub(sq.at) > maxQuoteAge {
		return types.Quote{}, false
	}
	return sq.quote, true
}

// Subscriptions are renewed on every connect so reconnects resume streaming.
func (qs *quoteStream) onConnect() {
	ctx := context.Background()
	tokens := qs.mapper.getAllTokens()
	if len(tokens) == 0 {
		return
	}
	if err := qs.ticker.Subscribe(tokens); err != nil {
		logger.ErrorWithErr(ctx, "Failed to subscribe instruments", err, "count", len(tokens))
		return
	}
	if err := qs.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		logger.ErrorWithErr(ctx, "Failed to set ticker mode", err)
		return
	}
	logger.Info(ctx, "WebSocket connected", "instruments", len(tokens))
}

func (qs *quoteStream) onError(err error) {
	logger.ErrorWithErr(context.Background(), "WebSocket error", err)
}

func (qs *quoteStream) onClose(code int, reason string) {
	logger.Warn(context.Background(), "WebSocket closed", "code", code, "reason", reason)
}

func (qs *quoteStream) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting", "attempt", attempt, "delay", delay)
}

func (qs *quoteStream) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "WebSocket reconnection failed - giving up", "attempts", attempt)
}

func (qs *quoteStream) onTick(tick models.Tick) {
	symbol := qs.mapper.getSymbol(tick.InstrumentToken)
	if symbol == "" {
		return
	}
	q, ok := depthQuote(tick.Depth, tick.LastPrice)
	if !ok {
		return
	}

	qs.mu.Lock()
	qs.quotes[symbol] = streamedQuote{quote: q, at: qs.now()}
	qs.mu.Unlock()
}

func (qs *quoteStream) onOrderUpdate(order kiteconnect.Order) {
	logger.Debug(context.Background(), "Order update received",
		"order_id", order.OrderID,
		"status", order.Status,
		"symbol", order.TradingSymbol,
		"tag", order.Tag,
	)
}

// depthQuote takes the top of the book, falling back to the last price for
// a side with no orders.
func depthQuote(d models.Depth, last float64) (types.Quote, bool) {
	q := types.Quote{Bid: d.Buy[0].Price, Ask: d.Sell[0].Price}
	if q.Bid <= 0 {
		q.Bid = last
	}
	if q.Ask <= 0 {
		q.Ask = last
	}
	return q, q.Valid()
}
