package zerodha

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"sentiment-trader/internal/broker"
	"sentiment-trader/internal/types"
)

type fakeKite struct {
	quotes    kiteconnect.Quote
	orders    kiteconnect.Orders
	positions kiteconnect.Positions
	placed    []kiteconnect.OrderParams
	err       error
}

func (f *fakeKite) GetQuote(instruments ...string) (kiteconnect.Quote, error) {
	return f.quotes, f.err
}

func (f *fakeKite) GetOrders() (kiteconnect.Orders, error) {
	return f.orders, f.err
}

func (f *fakeKite) GetPositions() (kiteconnect.Positions, error) {
	return f.positions, f.err
}

func (f *fakeKite) PlaceOrder(variety string, p kiteconnect.OrderParams) (kiteconnect.OrderResponse, error) {
	if f.err != nil {
		return kiteconnect.OrderResponse{}, f.err
	}
	f.placed = append(f.placed, p)
	return kiteconnect.OrderResponse{OrderID: "ORD-1"}, nil
}

func (f *fakeKite) GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error) {
	return nil, f.err
}

var t0 = time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)

func order(id, symbol, txn string, qty, price float64, at time.Duration) kiteconnect.Order {
	return kiteconnect.Order{
		OrderID:         id,
		Status:          statusComplete,
		Tag:             "BBSSTS",
		Exchange:        "NSE",
		TradingSymbol:   symbol,
		TransactionType: txn,
		Quantity:        qty,
		FilledQuantity:  qty,
		AveragePrice:    price,
		OrderTimestamp:  models.Time{Time: t0.Add(at)},
	}
}

func depth(bid, ask float64) models.Depth {
	return models.Depth{
		Buy:  [5]models.DepthItem{{Price: bid}},
		Sell: [5]models.DepthItem{{Price: ask}},
	}
}

func TestOrderTag(t *testing.T) {
	assert.Equal(t, "BBSSTS", orderTag("BBS@STS"))
	assert.Equal(t, "abcdefghij0123456789", orderTag("abcdefghij0123456789XYZ"))
}

func TestRebuildLots(t *testing.T) {
	rejected := order("X1", "AAA", "BUY", 1, 1, 0)
	rejected.Status = "REJECTED"
	foreign := order("X2", "AAA", "BUY", 1, 1, 0)
	foreign.Tag = "OTHER"
	bse := order("X3", "AAA", "BUY", 1, 1, 0)
	bse.Exchange = "BSE"

	orders := kiteconnect.Orders{
		order("O3", "AAA", "SELL", 12, 105, 3*time.Minute),
		order("O1", "AAA", "BUY", 10, 100, time.Minute),
		order("O2", "AAA", "BUY", 5, 102, 2*time.Minute),
		order("O4", "BBB", "SELL", 4, 50, 4*time.Minute),
		rejected, foreign, bse,
	}

	lots := rebuildLots(nil, orders, "NSE", "BBSSTS", "BBS@STS")
	require.Len(t, lots, 2)

	assert.Equal(t, types.Position{
		Ticket: "O2", Symbol: "AAA", Side: types.SideLong, StrategyID: "BBS@STS",
		EntryPrice: 102, Volume: 3, OpenedAt: t0.Add(2 * time.Minute),
	}, lots[0])
	assert.Equal(t, "O4", lots[1].Ticket)
	assert.Equal(t, types.SideShort, lots[1].Side)
	assert.Equal(t, 4.0, lots[1].Volume)
}

func TestRebuildLotsFlipsThroughZero(t *testing.T) {
	lots := rebuildLots(nil, kiteconnect.Orders{
		order("O1", "AAA", "BUY", 2, 100, time.Minute),
		order("O2", "AAA", "SELL", 5, 101, 2*time.Minute),
	}, "NSE", "BBSSTS", "S")
	require.Len(t, lots, 1)
	assert.Equal(t, types.SideShort, lots[0].Side)
	assert.Equal(t, 3.0, lots[0].Volume)
}

func TestRebuildLotsCountsWorkingOrdersAsCovers(t *testing.T) {
	exit := order("O2", "AAA", "SELL", 10, 0, 2*time.Minute)
	exit.Status = "OPEN"
	exit.FilledQuantity = 4
	exit.AveragePrice = 104
	entry := order("O3", "BBB", "BUY", 5, 0, 3*time.Minute)
	entry.Status = "TRIGGER PENDING"
	entry.FilledQuantity = 0

	lots := rebuildLots(nil, kiteconnect.Orders{
		order("O1", "AAA", "BUY", 10, 100, time.Minute),
		exit, entry,
	}, "NSE", "BBSSTS", "S")
	assert.Empty(t, lots)
}

func TestCarriedLots(t *testing.T) {
	positions := kiteconnect.Positions{Net: []kiteconnect.Position{
		{Tradingsymbol: "AAA", Exchange: "NSE", Product: "NRML", OvernightQuantity: 6, AveragePrice: 100},
		{Tradingsymbol: "BBB", Exchange: "NSE", Product: "NRML", OvernightQuantity: -2, ClosePrice: 50},
		{Tradingsymbol: "CCC", Exchange: "NSE", Product: "NRML", OvernightQuantity: 1, AveragePrice: 10},
		{Tradingsymbol: "AAA", Exchange: "NSE", Product: "MIS", OvernightQuantity: 3, AveragePrice: 100},
		{Tradingsymbol: "BBB", Exchange: "NSE", Product: "NRML", Quantity: 5, AveragePrice: 50},
	}}

	lots := carriedLots(positions, "NSE", "NRML", []string{"AAA", "BBB"}, "S")
	assert.Equal(t, []types.Position{
		{Ticket: "CARRY-AAA", Symbol: "AAA", Side: types.SideLong, StrategyID: "S", EntryPrice: 100, Volume: 6},
		{Ticket: "CARRY-BBB", Symbol: "BBB", Side: types.SideShort, StrategyID: "S", EntryPrice: 50, Volume: 2},
	}, lots)
}

func TestOpenPositionsKeepsLotsFromEarlierSessions(t *testing.T) {
	kc := &fakeKite{
		positions: kiteconnect.Positions{Net: []kiteconnect.Position{
			{Tradingsymbol: "AAA", Exchange: "NSE", Product: "NRML", OvernightQuantity: 5, AveragePrice: 100},
		}},
		orders: kiteconnect.Orders{order("O1", "AAA", "SELL", 2, 103, time.Minute)},
	}
	z := newZerodha(Params{Product: "NRML", Symbols: []string{"AAA"}}, kc)
	ctx := context.Background()

	lots, err := z.OpenPositions(ctx, "BBS@STS")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "CARRY-AAA", lots[0].Ticket)
	assert.Equal(t, 3.0, lots[0].Volume)

	_, err = z.Submit(ctx, types.TradeSignal{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.ExitLong})
	require.NoError(t, err)
	require.Len(t, kc.placed, 1)
	assert.Equal(t, 3, kc.placed[0].Quantity)
}

func TestSubmitExitNotResentWhileWorking(t *testing.T) {
	working := order("O2", "AAA", "SELL", 5, 0, 2*time.Minute)
	working.Status = "OPEN"
	working.FilledQuantity = 0
	kc := &fakeKite{orders: kiteconnect.Orders{
		order("O1", "AAA", "BUY", 5, 100, time.Minute),
		working,
	}}
	z := newZerodha(Params{}, kc)

	_, err := z.Submit(context.Background(), types.TradeSignal{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.ExitLong})
	assert.ErrorIs(t, err, ErrNothingToClose)
	assert.Empty(t, kc.placed)
}

func TestQuoteFromDepth(t *testing.T) {
	kc := &fakeKite{quotes: kiteconnect.Quote{
		"NSE:AAA": {LastPrice: 100, Depth: depth(99.5, 100.5)},
		"NSE:BBB": {LastPrice: 50},
	}}
	z := newZerodha(Params{}, kc)

	q, err := z.Quote(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, types.Quote{Bid: 99.5, Ask: 100.5}, q)

	q, err = z.Quote(context.Background(), "BBB")
	require.NoError(t, err)
	assert.Equal(t, types.Quote{Bid: 50, Ask: 50}, q)

	_, err = z.Quote(context.Background(), "CCC")
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestSubmitEntry(t *testing.T) {
	kc := &fakeKite{quotes: kiteconnect.Quote{"NSE:AAA": {LastPrice: 100, Depth: depth(99, 101)}}}
	z := newZerodha(Params{Sizer: broker.Sizer{Fixed: 2}}, kc)

	ack, err := z.Submit(context.Background(), types.TradeSignal{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.EnterShort})
	require.NoError(t, err)
	assert.Equal(t, types.Ack{OrderID: "ORD-1", Status: StatusPlaced, Price: 99, Volume: 2}, ack)

	require.Len(t, kc.placed, 1)
	p := kc.placed[0]
	assert.Equal(t, kiteconnect.TransactionTypeSell, p.TransactionType)
	assert.Equal(t, "AAA", p.Tradingsymbol)
	assert.Equal(t, 2, p.Quantity)
	assert.Equal(t, "BBSSTS", p.Tag)
	assert.Equal(t, kiteconnect.ExchangeNSE, p.Exchange)
	assert.Equal(t, kiteconnect.ProductMIS, p.Product)
	assert.Equal(t, kiteconnect.OrderTypeMarket, p.OrderType)
}

func TestSubmitExit(t *testing.T) {
	kc := &fakeKite{orders: kiteconnect.Orders{
		order("O1", "AAA", "BUY", 3, 100, time.Minute),
		order("O2", "AAA", "BUY", 2, 101, 2*time.Minute),
	}}
	z := newZerodha(Params{}, kc)
	ctx := context.Background()

	_, err := z.Submit(ctx, types.TradeSignal{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.ExitLong})
	require.NoError(t, err)
	require.Len(t, kc.placed, 1)
	assert.Equal(t, kiteconnect.TransactionTypeSell, kc.placed[0].TransactionType)
	assert.Equal(t, 5, kc.placed[0].Quantity)

	_, err = z.Submit(ctx, types.TradeSignal{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.ExitLong, Ticket: "O2"})
	require.NoError(t, err)
	assert.Equal(t, 2, kc.placed[1].Quantity)

	_, err = z.Submit(ctx, types.TradeSignal{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.ExitShort})
	assert.ErrorIs(t, err, ErrNothingToClose)
}

func TestSubmitPropagatesBrokerErrors(t *testing.T) {
	boom := errors.New("boom")
	z := newZerodha(Params{}, &fakeKite{err: boom})
	_, err := z.Submit(context.Background(), types.TradeSignal{StrategyID: "S", Symbol: "AAA", Action: types.EnterLong})
	assert.ErrorIs(t, err, boom)
}

func TestNewZerodhaRequiresCredentials(t *testing.T) {
	_, err := NewZerodha(Params{APIKey: "key"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestQuoteStream(t *testing.T) {
	mapper := newInstrumentMapper()
	missing := mapper.load(kiteconnect.Instruments{
		{InstrumentToken: 42, Tradingsymbol: "AAA"},
		{InstrumentToken: 7, Tradingsymbol: "OTHER"},
	}, []string{"AAA", "ZZZ"})
	assert.Equal(t, []string{"ZZZ"}, missing)
	assert.Equal(t, []uint32{42}, mapper.getAllTokens())

	now := t0
	qs := newQuoteStream("", "", mapper)
	qs.now = func() time.Time { return now }

	qs.onTick(models.Tick{InstrumentToken: 42, LastPrice: 100, Depth: depth(99, 101)})
	qs.onTick(models.Tick{InstrumentToken: 7, LastPrice: 100})

	q, ok := qs.quote("AAA")
	require.True(t, ok)
	assert.Equal(t, types.Quote{Bid: 99, Ask: 101}, q)
	_, ok = qs.quote("OTHER")
	assert.False(t, ok)

	now = now.Add(maxQuoteAge + time.Second)
	_, ok = qs.quote("AAA")
	assert.False(t, ok)
}
