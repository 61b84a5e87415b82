// Package notify pushes trade and prompt alerts to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

const (
	ColorInfo    = 0x3498db
	ColorLong    = 0x2ecc71
	ColorShort   = 0xe74c3c
	ColorWarning = 0xf1c40f
)

// DiscordNotifier sends alerts to a Discord webhook. With no URL every call
// is a no-op.
type DiscordNotifier struct {
	webhookURL string
	footer     string
	client     *http.Client
	now        func() time.Time
}

var _ interfaces.Notifier = (*DiscordNotifier)(nil)

func NewDiscordNotifier(webhookURL, footer string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		footer:     footer,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (d *DiscordNotifier) Enabled() bool {
	return d != nil && d.webhookURL != ""
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Notify picks the embed colour from the action named in the title.
func (d *DiscordNotifier) Notify(ctx context.Context, title, message string) error {
	return d.SendAlert(ctx, title, message, colorFor(title))
}

func (d *DiscordNotifier) SendAlert(ctx context.Context, title, message string, color int) error {
	if !d.Enabled() {
		return nil
	}

	e := embed{
		Title:       title,
		Description: message,
		Color:       color,
		Timestamp:   d.now().Format(time.RFC3339),
	}
	if d.footer != "" {
		e.Footer = &embedFooter{Text: d.footer}
	}
	data, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status: %d", resp.StatusCode)
	}
	return nil
}

// PromptOpened alerts the operator that a trade is waiting for an answer.
func (d *DiscordNotifier) PromptOpened(ctx context.Context, p types.Prompt) {
	msg := fmt.Sprintf("%s\n\nAnswer on the console or POST /confirm with id %d.", p.Text, p.ID)
	if err := d.SendAlert(ctx, "Confirmation required", msg, ColorWarning); err != nil {
		logger.Warn(ctx, "Failed to send prompt notification", "prompt_id", p.ID, "error", err)
	}
}

func (d *DiscordNotifier) PromptClosed(context.Context, uint64) {}

func colorFor(title string) int {
	switch {
	case strings.Contains(title, string(types.EnterLong)), strings.Contains(title, string(types.ExitShort)):
		return ColorLong
	case strings.Contains(title, string(types.EnterShort)), strings.Contains(title, string(types.ExitLong)):
		return ColorShort
	case strings.Contains(strings.ToLower(title), "closed"), strings.Contains(strings.ToLower(title), "failed"):
		return ColorWarning
	default:
		return ColorInfo
	}
}
