package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/types"
)

func TestNotifyPostsEmbed(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	d := NewDiscordNotifier(ts.URL, "BBS@STS")
	d.now = func() time.Time { return time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, d.Notify(context.Background(), "ENTER_LONG AAA", "sentiment 0.41"))
	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "ENTER_LONG AAA", e.Title)
	assert.Equal(t, "sentiment 0.41", e.Description)
	assert.Equal(t, ColorLong, e.Color)
	assert.Equal(t, "2024-01-08T10:00:00Z", e.Timestamp)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "BBS@STS", e.Footer.Text)
}

func TestNotifyErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	err := NewDiscordNotifier(ts.URL, "").Notify(context.Background(), "x", "y")
	assert.ErrorContains(t, err, "429")
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	d := NewDiscordNotifier("", "")
	assert.False(t, d.Enabled())
	assert.NoError(t, d.Notify(context.Background(), "x", "y"))
	d.PromptOpened(context.Background(), types.Prompt{ID: 1, Text: "?"})
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, ColorLong, colorFor("EXIT_SHORT BBB"))
	assert.Equal(t, ColorShort, colorFor("ENTER_SHORT BBB"))
	assert.Equal(t, ColorShort, colorFor("EXIT_LONG BBB"))
	assert.Equal(t, ColorWarning, colorFor("Trading window closed"))
	assert.Equal(t, ColorInfo, colorFor("Started"))
}
