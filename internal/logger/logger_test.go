package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string, detailed bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: level, Format: "json", DetailedLogging: detailed, Output: &buf}))
	t.Cleanup(func() {
		_ = InitWithConfig(LogConfig{Level: "INFO", Format: "text"})
	})
	return &buf
}

func TestEnableDetailed(t *testing.T) {
	capture(t, "INFO", false)
	assert.False(t, IsDebugEnabled())
	assert.False(t, IsTracingEnabled())

	EnableDetailed(true)
	assert.True(t, IsDebugEnabled())
	EnableDetailed(false)
	assert.False(t, IsDebugEnabled())
}

func TestOperationTimer(t *testing.T) {
	buf := capture(t, "DEBUG", true)
	ctx := context.Background()

	op := StartOperation(ctx, "news.Headlines", "ticker", "AAPL")
	assert.NotNil(t, op.GetContext())
	op.End("articles", 3)
	assert.Contains(t, buf.String(), `"msg":"Operation completed"`)
	assert.Contains(t, buf.String(), `"articles":3`)
	assert.Contains(t, buf.String(), `"ticker":"AAPL"`)

	buf.Reset()
	StartOperation(ctx, "zerodha.PlaceOrder").EndWithError(errors.New("rejected"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"error":"rejected"`)
}
