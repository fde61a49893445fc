// Package network streams session events to the presentation layer over
// websockets and feeds player actions back into the session loop.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/lockdown/internal/engine"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

// Dispatcher queues a command for the goroutine that owns the session.
// engine.Loop implements it.
type Dispatcher interface {
	Do(cmd engine.Command) bool
	Restart(respond func(*engine.Session, error)) bool
}

// Limits bounds what a single client may cost the server.
type Limits struct {
	Rate       float64 // actions per second
	Burst      int
	SendBuffer int // queued outbound messages before the client is dropped
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	dispatcher Dispatcher
	limits     Limits
	metrics    *metrics.Collector
	logger     *logger.Logger
}

// NewHub initializes a new WebSocket Hub routing actions to d.
func NewHub(d Dispatcher, limits Limits, m *metrics.Collector, log *logger.Logger) *Hub {
	if limits.Rate <= 0 {
		limits.Rate = 2
	}
	if limits.Burst < 1 {
		limits.Burst = 1
	}
	if limits.SendBuffer < 1 {
		limits.SendBuffer = 64
	}
	return &Hub{
		broadcast:  make(chan []byte, 256),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		dispatcher: d,
		limits:     limits,
		metrics:    m,
		logger:     log,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			close(h.done)
			h.mu.Unlock()
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("websocket client disconnected", "remote", client.remote)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					h.logger.Warn("client send buffer full, dropping client", "remote", client.remote)
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// add registers client unless the hub has shut down.
func (h *Hub) add(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[client] = true
	h.metrics.RecordWSConnection(1)
	h.logger.Info("websocket client connected", "remote", client.remote)
	return true
}

// drop removes client. Callers hold h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.metrics.RecordWSConnection(-1)
}

// BroadcastEvent serializes a GameEvent and queues it for every connected client.
// It runs on the session goroutine and never blocks: when the hub falls behind
// the event is dropped for websocket listeners.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to serialize event for broadcast", "type", event.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.metrics.RecordWSError()
		h.logger.Warn("broadcast queue full, event dropped", "type", event.Type)
	}
}

// reply sends a message to one client if it is still connected.
func (h *Hub) reply(client *Client, r Reply) {
	payload, err := json.Marshal(r)
	if err != nil {
		h.logger.Error("failed to serialize reply", "action", r.Action, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		h.logger.Warn("client send buffer full, reply dropped", "action", r.Action)
	}
}

// ClientCount reports the connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The room's display runs on a different origin
	},
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	client := NewClient(h, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
