package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"sentiment-trader/internal/types"
)

// answerer is the part of the confirmation bridge the console needs.
type answerer interface {
	Respond(value string) bool
}

// console prints prompts to out and feeds each non-empty line of in to the bridge.
type console struct {
	in     io.Reader
	out    io.Writer
	bridge answerer
	mu     sync.Mutex
}

func newConsole(in io.Reader, out io.Writer, bridge answerer) *console {
	return &console{in: in, out: out, bridge: bridge}
}

func (c *console) PromptOpened(_ context.Context, p types.Prompt) {
	c.printf("\n[confirm #%d] %s\n> ", p.ID, p.Text)
}

func (c *console) PromptClosed(context.Context, uint64) {}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// run returns when ctx is done or in is exhausted. The reader goroutine may
// outlive it while blocked on a read.
func (c *console) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !c.bridge.Respond(line) {
				c.printf("nothing to confirm\n")
			}
		}
	}
}
