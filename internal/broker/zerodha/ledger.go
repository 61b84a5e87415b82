package zerodha

import (
	"sort"
	"strings"
	"unicode"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"sentiment-trader/internal/types"
)

const (
	statusComplete  = "COMPLETE"
	statusCancelled = "CANCELLED"
	statusRejected  = "REJECTED"
	maxTagLen       = 20
	carryTicket     = "CARRY-"
)

// pending is true for orders the exchange may still fill.
func pending(status string) bool {
	switch status {
	case statusComplete, statusCancelled, statusRejected:
		return false
	}
	return true
}

// carriedLots turns the overnight part of the account's net positions into
// lots, one per symbol. Orders only cover the current day, so without these
// a lot held into a second session would drop out of the ledger. Only the
// configured product, exchange and symbols are taken; an empty symbol list
// takes every symbol.
func carriedLots(positions kiteconnect.Positions, exchange, product string, symbols []string, strategyID string) []types.Position {
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	var lots []types.Position
	for _, p := range positions.Net {
		if p.OvernightQuantity == 0 || p.Product != product {
			continue
		}
		if exchange != "" && p.Exchange != exchange {
			continue
		}
		if len(wanted) > 0 && !wanted[p.Tradingsymbol] {
			continue
		}
		side, qty := types.SideLong, p.OvernightQuantity
		if qty < 0 {
			side, qty = types.SideShort, -qty
		}
		price := p.AveragePrice
		if price == 0 {
			price = p.ClosePrice
		}
		lots = append(lots, types.Position{
			Ticket:     carryTicket + p.Tradingsymbol,
			Symbol:     p.Tradingsymbol,
			Side:       side,
			StrategyID: strategyID,
			EntryPrice: price,
			Volume:     float64(qty),
		})
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].Symbol < lots[j].Symbol })
	return lots
}

// orderTag reduces a strategy id to what the order API accepts as a tag.
func orderTag(strategyID string) string {
	tag := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, strategyID)
	if len(tag) > maxTagLen {
		tag = tag[:maxTagLen]
	}
	return tag
}

// rebuildLots starts from the carried lots and replays the day's orders
// carrying tag. A buy first covers the oldest shorts of its symbol and opens a
// long with the rest; a sell does the reverse. The unfilled part of an order
// still working only covers: an exit already sent is not sent again, and it
// never opens a lot before it fills.
func rebuildLots(carried []types.Position, orders kiteconnect.Orders, exchange, tag, strategyID string) []types.Position {
	live := make([]kiteconnect.Order, 0, len(orders))
	for _, o := range orders {
		if o.Tag != tag || o.Status == statusCancelled || o.Status == statusRejected {
			continue
		}
		if exchange != "" && o.Exchange != exchange {
			continue
		}
		live = append(live, o)
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].OrderTimestamp.Time.Before(live[j].OrderTimestamp.Time)
	})

	lots := append([]types.Position(nil), carried...)
	for _, o := range live {
		filled, working := o.FilledQuantity, 0.0
		switch {
		case pending(o.Status):
			working = o.Quantity - o.FilledQuantity
		case filled == 0:
			filled = o.Quantity
		}

		opens, covers := types.SideLong, types.SideShort
		if o.TransactionType == kiteconnect.TransactionTypeSell {
			opens, covers = types.SideShort, types.SideLong
		}

		var rest float64
		lots, rest = cover(lots, o.TradingSymbol, covers, filled)
		if rest > 0 {
			lots = append(lots, types.Position{
				Ticket:     o.OrderID,
				Symbol:     o.TradingSymbol,
				Side:       opens,
				StrategyID: strategyID,
				EntryPrice: o.AveragePrice,
				Volume:     rest,
				OpenedAt:   o.OrderTimestamp.Time,
			})
		}
		if working > 0 {
			lots, _ = cover(lots, o.TradingSymbol, covers, working)
		}
	}
	return lots
}

// cover takes qty off the oldest lots of symbol on side and returns what is
// left of qty.
func cover(lots []types.Position, symbol string, side types.Side, qty float64) ([]types.Position, float64) {
	kept := lots[:0]
	for _, p := range lots {
		if qty > 0 && p.Symbol == symbol && p.Side == side {
			used := min(qty, p.Volume)
			p.Volume -= used
			qty -= used
		}
		if p.Volume > 0 {
			kept = append(kept, p)
		}
	}
	return kept, qty
}
