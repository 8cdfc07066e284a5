package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/mahlburgc/armterm/internal/controller"
)

const (
	writeTimeout = 5 * time.Second
	clientBuffer = 64
)

// Event is one JSON message on the /ws stream.
type Event struct {
	Type      string         `json:"type"`
	Time      time.Time      `json:"time,omitzero"`
	State     *stateResponse `json:"state,omitempty"`
	Text      string         `json:"text,omitempty"`
	Connected *bool          `json:"connected,omitempty"`
}

const (
	EventState      = "state"
	EventLine       = "line"
	EventConnection = "connection"
	EventSent       = "sent"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans controller callbacks out to every connected WebSocket client.
// A client that cannot keep up is dropped.
type Hub struct {
	snapshot func() controller.Snapshot
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(snapshot func() controller.Snapshot, logger *slog.Logger) *Hub {
	return &Hub{
		snapshot: snapshot,
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
}

func (h *Hub) OnStateChanged(s controller.Snapshot) {
	state := newStateResponse(s)
	h.broadcast(Event{Type: EventState, Time: time.Now(), State: &state})
}

func (h *Hub) OnSerialLine(ts time.Time, text string) {
	h.broadcast(Event{Type: EventLine, Time: ts, Text: text})
}

func (h *Hub) OnConnectionStatus(connected bool) {
	h.broadcast(Event{Type: EventConnection, Time: time.Now(), Connected: &connected})
}

func (h *Hub) OnCommandSent(ts time.Time, line string) {
	h.broadcast(Event{Type: EventSent, Time: ts, Text: line})
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("WebSocket client too slow, dropping")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close ends every stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams events until either side
// closes. The first event is always the current state.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	c := &client{conn: ws, send: make(chan []byte, clientBuffer)}

	state := newStateResponse(h.snapshot())
	first, err := json.Marshal(Event{Type: EventState, Time: time.Now(), State: &state})
	if err != nil {
		h.logger.Error("Failed to encode event", "type", EventState, "error", err)
		return
	}
	c.send <- first

	h.register(c)
	defer h.remove(c)
	h.logger.Info("WebSocket client connected", "ip", r.RemoteAddr)

	// clients only listen, CloseRead handles their control frames
	ctx := ws.CloseRead(r.Context())
	h.writeLoop(ctx, c)
	h.logger.Info("WebSocket client disconnected", "ip", r.RemoteAddr)
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.logger.Debug("WebSocket write error", "error", err)
				return
			}
		}
	}
}
