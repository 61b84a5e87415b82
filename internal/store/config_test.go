package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/engine"
)

const minimal = `
symbols:
  mapping: ["AAA:AAPL", "BBB:MSFT", "CCC:GOOG"]
`

func TestParseConfigAppliesDefaults(t *testing.T) {
	c, err := ParseConfig([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "DRY_RUN", c.Mode)
	assert.Equal(t, "BBS@STS", c.Strategy.ID)
	assert.Equal(t, "stock", c.Symbols.Type)
	assert.Equal(t, 0.2, c.Risk.Threshold)
	assert.Equal(t, 5.0, c.Risk.ExpectedReturn)
	assert.Equal(t, 15, c.Window.IterationMinutes)
	assert.Equal(t, "month", c.Window.Period)
	assert.False(t, c.Flags.AutoTrade)
	assert.False(t, c.Risk.CapWithinCycle)

	s, err := c.Settings()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, s.Mapping.Tickers())
	assert.Equal(t, 3, s.Risk.MaxPositions)
	assert.Equal(t, 1, s.Risk.MaxTrades)
	assert.Equal(t, time.Duration(0), s.Window.Start)
	assert.Equal(t, 23*time.Hour+59*time.Minute, s.Window.End)
	assert.Equal(t, 15*time.Minute, s.Window.Interval)
	assert.Equal(t, engine.PeriodMonth, s.Window.Period)
}

func TestParseConfigOverrides(t *testing.T) {
	c, err := ParseConfig([]byte(`
mode: LIVE
strategy: {id: "STS-42"}
symbols:
  mapping: ["AAA:AAPL", "BBB:MSFT"]
  type: etf
risk: {threshold: 0.3, max_positions: 8, cap_within_cycle: true}
window: {start: "09:15", finish: "15:00", end: "15:20", iteration_minutes: 5, period: day, timezone: UTC}
flags: {auto_trade: true, notifications: true}
`))
	require.NoError(t, err)

	s, err := c.Settings()
	require.NoError(t, err)
	assert.Equal(t, "STS-42", s.StrategyID)
	assert.Equal(t, "etf", s.AssetClass)
	assert.Equal(t, 8, s.Risk.MaxPositions)
	assert.Equal(t, 4, s.Risk.MaxTrades)
	assert.True(t, s.Risk.CapWithinCycle)
	assert.Equal(t, 9*time.Hour+15*time.Minute, s.Window.Start)
	assert.Equal(t, time.UTC, s.Window.Location)
	assert.True(t, s.AutoTrade)
	assert.True(t, s.Notifications)
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no symbols", `mode: DRY_RUN`},
		{"bad mode", minimal + "mode: PAPER\n"},
		{"duplicate ticker", `symbols: {mapping: ["AAA:AAPL", "BBB:AAPL"]}`},
		{"malformed entry", `symbols: {mapping: ["AAA"]}`},
		{"negative threshold", minimal + "risk: {threshold: -0.1}\n"},
		{"window out of order", minimal + "window: {start: \"10:00\", finish: \"09:00\"}\n"},
		{"bad clock", minimal + "window: {end: \"25:00\"}\n"},
		{"bad period", minimal + "window: {period: yearly}\n"},
		{"bad asset class", `symbols: {mapping: ["AAA:AAPL"], type: bond}`},
		{"bad timezone", minimal + "window: {timezone: Mars/Olympus}\n"},
		{"live delivery across days", minimal + "mode: LIVE\nexecution: {product: CNC}\nwindow: {period: week}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseConfigAllowsCarriedLiveProducts(t *testing.T) {
	for _, extra := range []string{
		"mode: LIVE\nexecution: {product: CNC}\nwindow: {period: day}\n",
		"mode: LIVE\nexecution: {product: NRML}\nwindow: {period: month}\n",
		"mode: DRY_RUN\nexecution: {product: CNC}\nwindow: {period: week}\n",
	} {
		_, err := ParseConfig([]byte(minimal + extra))
		assert.NoError(t, err, extra)
	}
}

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(minimal), 0o644))

	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Len(t, c.Symbols.Mapping, 3)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
