package symbols

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicate = errors.New("duplicate symbol mapping")
	ErrUnmapped  = errors.New("ticker is not mapped to a broker symbol")
	ErrMalformed = errors.New("malformed symbol mapping entry")
)

// Pair ties a broker-native symbol to the sentiment-source ticker.
type Pair struct {
	Symbol string
	Ticker string
}

// Mapping is an ordered bijection between broker symbols and tickers.
// It is immutable after construction and safe for concurrent reads.
type Mapping struct {
	pairs          []Pair
	symbolToTicker map[string]string
	tickerToSymbol map[string]string
}

// New builds a mapping from pairs, keeping their order.
func New(pairs ...Pair) (*Mapping, error) {
	m := &Mapping{
		pairs:          make([]Pair, 0, len(pairs)),
		symbolToTicker: make(map[string]string, len(pairs)),
		tickerToSymbol: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		p.Symbol = strings.TrimSpace(p.Symbol)
		p.Ticker = strings.TrimSpace(p.Ticker)
		if p.Symbol == "" || p.Ticker == "" {
			return nil, fmt.Errorf("%w: %q:%q", ErrMalformed, p.Symbol, p.Ticker)
		}
		if _, ok := m.symbolToTicker[p.Symbol]; ok {
			return nil, fmt.Errorf("%w: broker symbol %s", ErrDuplicate, p.Symbol)
		}
		if _, ok := m.tickerToSymbol[p.Ticker]; ok {
			return nil, fmt.Errorf("%w: ticker %s", ErrDuplicate, p.Ticker)
		}
		m.pairs = append(m.pairs, p)
		m.symbolToTicker[p.Symbol] = p.Ticker
		m.tickerToSymbol[p.Ticker] = p.Symbol
	}
	return m, nil
}

// Parse reads "SYMBOL:TICKER" entries separated by commas, e.g. "AAA:AAPL, BBB:MSFT,".
// Whitespace, newlines and stray quotes are ignored.
func Parse(s string) (*Mapping, error) {
	clean := strings.NewReplacer("\n", "", "\r", "", "\t", "", " ", "", `"`, "", "'", "").Replace(s)
	clean = strings.TrimSuffix(clean, ",")
	if clean == "" {
		return nil, fmt.Errorf("%w: empty mapping", ErrMalformed)
	}
	return FromEntries(strings.Split(clean, ","))
}

// FromEntries builds a mapping from "SYMBOL:TICKER" strings.
func FromEntries(entries []string) (*Mapping, error) {
	pairs := make([]Pair, 0, len(entries))
	for _, e := range entries {
		sym, tic, ok := strings.Cut(strings.TrimSpace(e), ":")
		if !ok || strings.Contains(tic, ":") {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, e)
		}
		pairs = append(pairs, Pair{Symbol: sym, Ticker: tic})
	}
	return New(pairs...)
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// Ticker returns the sentiment ticker for a broker symbol.
func (m *Mapping) Ticker(symbol string) (string, bool) {
	if m == nil {
		return "", false
	}
	t, ok := m.symbolToTicker[symbol]
	return t, ok
}

// BrokerSymbol returns the broker symbol for a sentiment ticker.
func (m *Mapping) BrokerSymbol(ticker string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m.tickerToSymbol[ticker]
	return s, ok
}

// Tickers returns the tickers in insertion order.
func (m *Mapping) Tickers() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.Ticker
	}
	return out
}

// Symbols returns the broker symbols in insertion order.
func (m *Mapping) Symbols() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.Symbol
	}
	return out
}

func (m *Mapping) Pairs() []Pair {
	if m == nil {
		return nil
	}
	return append([]Pair(nil), m.pairs...)
}

func (m *Mapping) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		parts[i] = p.Symbol + ":" + p.Ticker
	}
	return strings.Join(parts, ",")
}
