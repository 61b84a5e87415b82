package confirm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

var ErrNoPending = errors.New("no confirmation pending")

// Listener is told when a prompt opens and when it is answered or abandoned.
type Listener interface {
	PromptOpened(ctx context.Context, p types.Prompt)
	PromptClosed(ctx context.Context, id uint64)
}

type Option func(*Bridge)

func WithListener(l Listener) Option {
	return func(b *Bridge) { b.listeners = append(b.listeners, l) }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

type request struct {
	prompt types.Prompt
	resp   chan string
}

// Bridge hands one question at a time from the trading loop to whoever
// answers it. Requests queue on slot; the mutex guards pending.
type Bridge struct {
	slot chan struct{}

	mu      sync.Mutex
	pending *request
	nextID  uint64

	listeners []Listener
	now       func() time.Time
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		slot: make(chan struct{}, 1),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddListener registers l for prompts opened after the call.
func (b *Bridge) AddListener(l Listener) {
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
}

// Request publishes text and blocks until it is answered or ctx is done.
// A second caller waits for the first to finish before its prompt is shown.
func (b *Bridge) Request(ctx context.Context, text string) (string, error) {
	select {
	case b.slot <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-b.slot }()

	b.mu.Lock()
	b.nextID++
	r := &request{
		prompt: types.Prompt{ID: b.nextID, Text: text, AskedAt: b.now()},
		resp:   make(chan string, 1),
	}
	b.pending = r
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	logger.Prompt(ctx, r.prompt.ID, text)
	for _, l := range listeners {
		l.PromptOpened(ctx, r.prompt)
	}
	defer func() {
		for _, l := range listeners {
			l.PromptClosed(ctx, r.prompt.ID)
		}
	}()

	select {
	case v := <-r.resp:
		return v, nil
	case <-ctx.Done():
		b.mu.Lock()
		if b.pending == r {
			b.pending = nil
		}
		b.mu.Unlock()
		// A response may have landed between ctx firing and taking the lock.
		select {
		case v := <-r.resp:
			return v, nil
		default:
		}
		logger.Warn(ctx, "Confirmation abandoned", "prompt_id", r.prompt.ID, "error", ctx.Err())
		return "", ctx.Err()
	}
}

// Respond answers the pending prompt. It returns false, and does nothing
// else, when no prompt is waiting.
func (b *Bridge) Respond(value string) bool {
	return b.deliver(func(*request) bool { return true }, value)
}

// RespondTo answers only the prompt with the given id.
func (b *Bridge) RespondTo(id uint64, value string) bool {
	return b.deliver(func(r *request) bool { return r.prompt.ID == id }, value)
}

func (b *Bridge) deliver(match func(*request) bool, value string) bool {
	b.mu.Lock()
	r := b.pending
	if r == nil || !match(r) {
		b.mu.Unlock()
		logger.Warn(context.Background(), "Ignoring confirmation response", "error", ErrNoPending)
		return false
	}
	b.pending = nil
	r.resp <- value
	b.mu.Unlock()
	return true
}

// Pending returns the prompt currently waiting for an answer.
func (b *Bridge) Pending() (types.Prompt, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return types.Prompt{}, false
	}
	return b.pending.prompt, true
}

// ParseYes reports whether an operator answer means yes.
func ParseYes(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1", "ok":
		return true
	}
	return false
}
