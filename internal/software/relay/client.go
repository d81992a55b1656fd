package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"zoomx/internal/domain/user"
	"zoomx/internal/general/contracts"

	"github.com/gorilla/websocket"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20 // 1 MiB
)

// Client represents one authenticated relay connection.
type Client struct {
	ID     string
	UserID string
	Role   user.Role

	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu    sync.Mutex
	owned map[string]struct{} // request ids submitted over this connection
}

// trackOwned remembers a request submitted over this connection.
func (c *Client) trackOwned(requestID string) {
	c.mu.Lock()
	c.owned[requestID] = struct{}{}
	c.mu.Unlock()
}

// forgetOwned drops a request from the ownership set (explicit removal).
func (c *Client) forgetOwned(requestID string) {
	c.mu.Lock()
	delete(c.owned, requestID)
	c.mu.Unlock()
}

// ownedRequests returns a copy of the ownership set.
func (c *Client) ownedRequests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.owned))
	for id := range c.owned {
		out = append(out, id)
	}
	return out
}

// sendFrame queues a typed frame for this client only.
func (c *Client) sendFrame(frameType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	frame, err := json.Marshal(contracts.RelayFrame{Type: frameType, Data: payload})
	if err != nil {
		return
	}

	select {
	case c.send <- frame:
	default:
		// writePump is stuck or gone; the hub will notice on unregister
	}
}

// sendError queues an error frame for this client only.
func (c *Client) sendError(msg string) {
	c.sendFrame(contracts.RelayTypeError, contracts.RelayError{Error: msg})
}

// readPump reads inbound frames and routes them through the relay router.
// It owns the unregister signal: when the read side dies, the connection dies.
func (c *Client) readPump(ctx context.Context, router *Router) {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				router.logger.Error(ctx, "ws_unexpected_close", "Relay connection closed unexpectedly", err, map[string]any{
					"client_id": c.ID,
					"user_id":   c.UserID,
				})
			}
			return
		}

		var frame contracts.RelayFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.sendError("bad json")
			continue
		}

		router.Route(ctx, c, frame)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings. It is the only goroutine that writes.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
