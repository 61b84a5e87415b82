package strategyobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"sentiment-trader/internal/types"
)

type stubStrategy struct {
	evaluated []types.CycleInput
	flattened [][]types.Position
}

func (s *stubStrategy) ID() string { return "BBS@STS" }

func (s *stubStrategy) Evaluate(_ context.Context, in types.CycleInput) []types.TradeSignal {
	s.evaluated = append(s.evaluated, in)
	return []types.TradeSignal{{StrategyID: s.ID(), Symbol: "AAA", Action: types.EnterLong}}
}

func (s *stubStrategy) Flatten(_ context.Context, positions []types.Position) []types.TradeSignal {
	s.flattened = append(s.flattened, positions)
	out := make([]types.TradeSignal, 0, len(positions))
	for _, p := range positions {
		out = append(out, types.TradeSignal{StrategyID: s.ID(), Symbol: p.Symbol, Action: types.ExitLong, Ticket: p.Ticket})
	}
	return out
}

func TestWrapPassesThrough(t *testing.T) {
	inner := &stubStrategy{}
	s := Wrap(inner)
	ctx := context.Background()

	assert.Equal(t, "BBS@STS", s.ID())

	in := types.CycleInput{Snapshot: types.SentimentSnapshot{"AAPL": 0.4}}
	got := s.Evaluate(ctx, in)
	assert.Equal(t, []types.TradeSignal{{StrategyID: "BBS@STS", Symbol: "AAA", Action: types.EnterLong}}, got)
	assert.Equal(t, []types.CycleInput{in}, inner.evaluated)

	positions := []types.Position{{Ticket: "T1", Symbol: "BBB", Side: types.SideLong}}
	exits := s.Flatten(ctx, positions)
	assert.Len(t, exits, 1)
	assert.Equal(t, "T1", exits[0].Ticket)
	assert.Len(t, inner.flattened, 1)
}
