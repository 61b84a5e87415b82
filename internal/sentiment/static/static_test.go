package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/types"
)

func TestScores(t *testing.T) {
	in := map[string]float64{"AAPL": 0.4, "MSFT": -0.3}
	src := New(in)
	in["AAPL"] = 0

	snap, err := src.Scores(context.Background(), []string{"AAPL", "GOOG"})
	require.NoError(t, err)
	assert.Equal(t, types.SentimentSnapshot{"AAPL": 0.4}, snap)

	src.Set("GOOG", 0.1)
	snap, err = src.Scores(context.Background(), []string{"GOOG"})
	require.NoError(t, err)
	assert.Equal(t, types.SentimentSnapshot{"GOOG": 0.1}, snap)
}

func TestScoresCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Scores(ctx, []string{"AAPL"})
	assert.ErrorIs(t, err, context.Canceled)
}
