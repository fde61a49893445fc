package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/lockdown/internal/engine"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is one websocket connection to the room's presentation layer.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	remote  string
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.limits.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(hub.limits.Rate), hub.limits.Burst),
		remote:  conn.RemoteAddr().String(),
	}
}

// Register adds the client to the hub. Replies and broadcasts reach it as soon
// as Register returns.
func (c *Client) Register() {
	if !c.hub.add(c) {
		close(c.send)
	}
}

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps player actions from the websocket connection to the session.
func (c *Client) ReadPump() {
	defer func() {
		c.leave()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("websocket read failed", "remote", c.remote, "error", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.reply(c, failure("", apperrors.CodeMalformed, "action is not valid JSON"))
			continue
		}
		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	if !c.limiter.Allow() {
		c.hub.metrics.RecordRateLimited()
		c.hub.logger.Warn("rate limit exceeded", "remote", c.remote, "action", action.Type)
		c.hub.reply(c, failure(action.Type, apperrors.CodeRateLimited, "too many actions"))
		return
	}

	if action.Type == ActionRestart {
		respond := func(s *engine.Session, err error) { c.hub.reply(c, restartReply(s, err)) }
		if !c.hub.dispatcher.Restart(respond) {
			c.hub.reply(c, failure(action.Type, apperrors.CodeLoopSaturated, "session is busy"))
		}
		return
	}

	cmd, err := buildCommand(action, func(r Reply) { c.hub.reply(c, r) })
	if err != nil {
		c.hub.reply(c, failure(action.Type, apperrors.CodeOf(err), err.Error()))
		return
	}
	if !c.hub.dispatcher.Do(cmd) {
		c.hub.reply(c, failure(action.Type, apperrors.CodeLoopSaturated, "session is busy"))
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
