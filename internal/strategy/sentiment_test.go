package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/symbols"
	"sentiment-trader/internal/types"
)

const testID = "BBS@STS-1"

func newTestStrategy(t *testing.T, mapping string, maxPositions int) *Sentiment {
	t.Helper()
	m, err := symbols.Parse(mapping)
	require.NoError(t, err)
	s, err := NewSentiment(testID, m, RiskConfig{
		Threshold:      0.2,
		ExpectedReturn: 5.0,
		MaxPositions:   maxPositions,
		MaxTrades:      MaxTradesFor(maxPositions, m.Len()),
	})
	require.NoError(t, err)
	return s
}

func long(symbol string, price float64) types.Position {
	return types.Position{Ticket: symbol + "-L", Symbol: symbol, Side: types.SideLong, StrategyID: testID, EntryPrice: price, Volume: 1}
}

func short(symbol string, price float64) types.Position {
	return types.Position{Ticket: symbol + "-S", Symbol: symbol, Side: types.SideShort, StrategyID: testID, EntryPrice: price, Volume: 1}
}

func actions(sigs []types.TradeSignal) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = string(s.Action) + "(" + s.Symbol + ")"
	}
	return out
}

func TestEvaluateScenarios(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		snapshot  types.SentimentSnapshot
		positions []types.Position
		quotes    map[string]types.Quote
		want      []string
	}{
		{
			name:     "bullish score enters long",
			snapshot: types.SentimentSnapshot{"AAPL": 0.25},
			want:     []string{"ENTER_LONG(AAA)"},
		},
		{
			name:     "bearish score enters short",
			snapshot: types.SentimentSnapshot{"AAPL": -0.3},
			want:     []string{"ENTER_SHORT(AAA)"},
		},
		{
			name:     "neutral score does nothing",
			snapshot: types.SentimentSnapshot{"AAPL": 0.05},
			want:     nil,
		},
		{
			name:      "long stop on adverse move",
			snapshot:  types.SentimentSnapshot{"AAPL": 0},
			positions: []types.Position{long("AAA", 100)},
			quotes:    map[string]types.Quote{"AAA": {Bid: 93.9, Ask: 94}},
			want:      []string{"EXIT_LONG(AAA)"},
		},
		{
			name:      "long exit on bearish sentiment",
			snapshot:  types.SentimentSnapshot{"AAPL": -0.15},
			positions: []types.Position{long("AAA", 100)},
			quotes:    map[string]types.Quote{"AAA": {Bid: 100, Ask: 100.1}},
			want:      []string{"EXIT_LONG(AAA)", "ENTER_SHORT(AAA)"},
		},
		{
			name:      "short stop on adverse move",
			snapshot:  types.SentimentSnapshot{"AAPL": 0},
			positions: []types.Position{short("AAA", 100)},
			quotes:    map[string]types.Quote{"AAA": {Bid: 103, Ask: 103.1}},
			want:      []string{"EXIT_SHORT(AAA)"},
		},
		{
			name:      "short exit on bullish sentiment",
			snapshot:  types.SentimentSnapshot{"AAPL": 0.2},
			positions: []types.Position{short("AAA", 100)},
			quotes:    map[string]types.Quote{"AAA": {Bid: 100, Ask: 100.1}},
			want:      []string{"EXIT_SHORT(AAA)", "ENTER_LONG(AAA)"},
		},
		{
			name:      "holding long without adverse move does not pyramid",
			snapshot:  types.SentimentSnapshot{"AAPL": 0.5},
			positions: []types.Position{long("AAA", 100)},
			quotes:    map[string]types.Quote{"AAA": {Bid: 99, Ask: 99.1}},
			want:      nil,
		},
		{
			name:      "symbol with positions but no quote is skipped",
			snapshot:  types.SentimentSnapshot{"AAPL": -0.5},
			positions: []types.Position{long("AAA", 100)},
			want:      nil,
		},
		{
			name:      "positions of other strategies are ignored",
			snapshot:  types.SentimentSnapshot{"AAPL": 0.3},
			positions: []types.Position{{Symbol: "AAA", Side: types.SideLong, StrategyID: "other", EntryPrice: 100}},
			want:      []string{"ENTER_LONG(AAA)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStrategy(t, "AAA:AAPL", 2)
			got := s.Evaluate(ctx, types.CycleInput{Snapshot: tt.snapshot, Positions: tt.positions, Quotes: tt.quotes})
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, actions(got))
			for _, sig := range got {
				assert.Equal(t, testID, sig.StrategyID)
				assert.Equal(t, "AAPL", sig.Ticker)
			}
		})
	}
}

func TestEvaluatePyramidsOnlyOnAdverseMove(t *testing.T) {
	s := newTestStrategy(t, "AAA:AAPL", 4)
	require.Equal(t, 4, s.Risk().MaxTrades)

	got := s.Evaluate(context.Background(), types.CycleInput{
		Snapshot:  types.SentimentSnapshot{"AAPL": 0.3},
		Positions: []types.Position{long("AAA", 100), long("AAA", 98)},
		Quotes:    map[string]types.Quote{"AAA": {Bid: 95, Ask: 95.5}},
	})
	// 95.5 vs the cheapest entry 98 is -2.55%, past the -2.5% trigger.
	assert.Equal(t, []string{"EXIT_LONG(AAA)", "ENTER_LONG(AAA)"}, actions(got))
}

func TestEvaluateShortPricesUsePerSymbolBid(t *testing.T) {
	s := newTestStrategy(t, "AAA:AAPL,BBB:MSFT", 6)

	got := s.Evaluate(context.Background(), types.CycleInput{
		Snapshot:  types.SentimentSnapshot{"AAPL": -0.5, "MSFT": -0.5},
		Positions: []types.Position{short("AAA", 100), short("BBB", 100)},
		Quotes: map[string]types.Quote{
			"AAA": {Bid: 103, Ask: 103.2},
			"BBB": {Bid: 100.5, Ask: 100.7},
		},
	})
	// Only AAA moved enough to average up; BBB's own bid is used for BBB.
	assert.Equal(t, []string{"EXIT_SHORT(AAA)", "ENTER_SHORT(AAA)"}, actions(got))
}

func TestEvaluateAtCapacityOnlyExits(t *testing.T) {
	s := newTestStrategy(t, "AAA:AAPL,BBB:MSFT", 2)
	positions := []types.Position{long("AAA", 100), long("BBB", 100)}
	quotes := map[string]types.Quote{"AAA": {Bid: 94, Ask: 94}, "BBB": {Bid: 100, Ask: 100}}

	require.False(t, s.gate.HasCapacity(positions))

	got := s.Evaluate(context.Background(), types.CycleInput{
		Snapshot:  types.SentimentSnapshot{"AAPL": 0.9, "MSFT": 0.9},
		Positions: positions,
		Quotes:    quotes,
	})
	assert.Equal(t, []string{"EXIT_LONG(AAA)"}, actions(got))
}

func TestEvaluateChecksCapacityPerSymbolAgainstLedger(t *testing.T) {
	s := newTestStrategy(t, "AAA:AAPL,BBB:MSFT", 1)
	require.True(t, s.gate.HasCapacity(nil))

	got := s.Evaluate(context.Background(), types.CycleInput{
		Snapshot: types.SentimentSnapshot{"AAPL": 0.4, "MSFT": 0.4},
	})
	assert.Equal(t, []string{"ENTER_LONG(AAA)", "ENTER_LONG(BBB)"}, actions(got))
}

func TestEvaluateCapWithinCycle(t *testing.T) {
	m, err := symbols.Parse("AAA:AAPL,BBB:MSFT,CCC:GOOG")
	require.NoError(t, err)
	s, err := NewSentiment(testID, m, RiskConfig{
		Threshold:      0.2,
		ExpectedReturn: 5.0,
		MaxPositions:   2,
		MaxTrades:      1,
		CapWithinCycle: true,
	})
	require.NoError(t, err)

	got := s.Evaluate(context.Background(), types.CycleInput{
		Snapshot: types.SentimentSnapshot{"GOOG": 0.4, "AAPL": 0.4, "MSFT": -0.4},
	})
	assert.Equal(t, []string{"ENTER_LONG(AAA)", "ENTER_SHORT(BBB)"}, actions(got))
}

func TestEvaluateFollowsMappingOrderAndSkipsUnmapped(t *testing.T) {
	s := newTestStrategy(t, "CCC:GOOG,AAA:AAPL", 4)

	got := s.Evaluate(context.Background(), types.CycleInput{
		Snapshot: types.SentimentSnapshot{"AAPL": 0.4, "TSLA": 0.9, "GOOG": 0.4},
	})
	assert.Equal(t, []string{"ENTER_LONG(CCC)", "ENTER_LONG(AAA)"}, actions(got))
}

func TestEvaluateEmptyMapping(t *testing.T) {
	m, err := symbols.New()
	require.NoError(t, err)
	s, err := NewSentiment(testID, m, RiskConfig{Threshold: 0.2, ExpectedReturn: 5, MaxPositions: 1, MaxTrades: 1})
	require.NoError(t, err)

	assert.Empty(t, s.Evaluate(context.Background(), types.CycleInput{Snapshot: types.SentimentSnapshot{"AAPL": 1}}))
}

func TestFlattenOneExitPerPosition(t *testing.T) {
	s := newTestStrategy(t, "AAA:AAPL,BBB:MSFT", 4)
	positions := []types.Position{
		short("BBB", 50),
		long("AAA", 100),
		{Ticket: "t2", Symbol: "AAA", Side: types.SideLong, StrategyID: testID, EntryPrice: 98},
		{Ticket: "x", Symbol: "AAA", Side: types.SideLong, StrategyID: "other", EntryPrice: 98},
		{Ticket: "z", Symbol: "ZZZ", Side: types.SideShort, StrategyID: testID, EntryPrice: 10},
	}

	got := s.Flatten(context.Background(), positions)
	assert.Equal(t, []string{"EXIT_LONG(AAA)", "EXIT_LONG(AAA)", "EXIT_SHORT(BBB)", "EXIT_SHORT(ZZZ)"}, actions(got))
	assert.Equal(t, "AAA-L", got[0].Ticket)
	assert.Equal(t, "t2", got[1].Ticket)
	for _, sig := range got {
		assert.False(t, sig.Action.IsEntry())
	}

	assert.Empty(t, s.Flatten(context.Background(), nil))
}

func TestNewSentimentRejectsBadRisk(t *testing.T) {
	m, err := symbols.Parse("AAA:AAPL")
	require.NoError(t, err)

	_, err = NewSentiment(testID, m, RiskConfig{Threshold: 0, ExpectedReturn: 5, MaxPositions: 1, MaxTrades: 1})
	assert.ErrorIs(t, err, ErrInvalidRisk)

	_, err = NewSentiment("", m, RiskConfig{Threshold: 0.2, ExpectedReturn: 5, MaxPositions: 1, MaxTrades: 1})
	assert.Error(t, err)
}
