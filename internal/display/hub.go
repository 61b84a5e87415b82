package display

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

const (
	MessageSnapshot     = "snapshot"
	MessagePrompt       = "prompt"
	MessagePromptClosed = "prompt_closed"
	MessageConfirm      = "confirm"

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON frame exchanged with websocket clients. Clients answer
// prompts by sending a confirm frame with the prompt id.
type Message struct {
	Type   string         `json:"type"`
	Time   time.Time      `json:"time"`
	Scores []engine.Score `json:"scores,omitempty"`
	Prompt *types.Prompt  `json:"prompt,omitempty"`
	ID     uint64         `json:"id,omitempty"`
	Answer string         `json:"answer,omitempty"`
}

// Responder receives answers typed into a display client.
type Responder interface {
	RespondTo(id uint64, value string) bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans sentiment snapshots and confirmation prompts out to websocket
// clients. Slow clients are dropped rather than waited for.
type Hub struct {
	threshold float64
	responder Responder
	now       func() time.Time

	lock    sync.Mutex
	clients map[*client]bool
	last    []byte
	prompt  []byte
}

var _ engine.SnapshotSink = (*Hub)(nil)

func NewHub(threshold float64, responder Responder) *Hub {
	return &Hub{
		threshold: threshold,
		responder: responder,
		now:       time.Now,
		clients:   make(map[*client]bool),
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) PublishSnapshot(ctx context.Context, snap types.SentimentSnapshot) {
	msg, err := h.encode(Message{Type: MessageSnapshot, Scores: engine.FilterForDisplay(snap, h.threshold)})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to encode snapshot", err)
		return
	}
	h.lock.Lock()
	h.last = msg
	h.lock.Unlock()
	h.broadcast(msg)
}

func (h *Hub) PromptOpened(ctx context.Context, p types.Prompt) {
	msg, err := h.encode(Message{Type: MessagePrompt, Prompt: &p, ID: p.ID})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to encode prompt", err)
		return
	}
	h.lock.Lock()
	h.prompt = msg
	h.lock.Unlock()
	h.broadcast(msg)
}

func (h *Hub) PromptClosed(ctx context.Context, id uint64) {
	msg, err := h.encode(Message{Type: MessagePromptClosed, ID: id})
	if err != nil {
		return
	}
	h.lock.Lock()
	h.prompt = nil
	h.lock.Unlock()
	h.broadcast(msg)
}

func (h *Hub) encode(m Message) ([]byte, error) {
	m.Time = h.now()
	return json.Marshal(m)
}

func (h *Hub) broadcast(msg []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(c)
		}
	}
}

func (h *Hub) removeLocked(c *client) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeWS upgrades the request and replays the latest snapshot and any open
// prompt to the new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "WS upgrade failed", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.lock.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	if h.prompt != nil {
		c.send <- h.prompt
	}
	h.lock.Unlock()

	logger.Debug(r.Context(), "Display client connected", "remote", r.RemoteAddr)
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.lock.Lock()
		h.removeLocked(c)
		h.lock.Unlock()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			return
		}
		if m.Type != MessageConfirm || h.responder == nil {
			continue
		}
		h.responder.RespondTo(m.ID, m.Answer)
	}
}
