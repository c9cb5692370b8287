// internal/ws/client.go
//
// Persistent player connections over WebSocket.
//
// One goroutine pair per connection: readPump decodes and dispatches one
// request at a time (so a player's guesses are applied in submission
// order), writePump drains the buffered send channel and keeps the
// connection alive with pings. A disconnect tears down the pair; applied
// guesses are never rolled back.

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wordplay-labs/connections-server/internal/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to player connections.
type Handler struct {
	dispatcher *Dispatcher

	// PreAuth resolves an already-authenticated user from the upgrade
	// request (JWT cookie/header); nil user means the client must log in
	// in-band.
	PreAuth func(r *http.Request) *auth.User
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// ServeHTTP upgrades the request and runs the connection pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		dispatcher: h.dispatcher,
		state:      &connState{},
	}
	if h.PreAuth != nil {
		c.state.user = h.PreAuth(r)
	}
	log.Debug().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("player connected")

	go c.writePump()
	c.readPump(r.Context())
}

// client is one connected player.
type client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{} // closed when writePump exits
	dispatcher *Dispatcher
	state      *connState
}

// readPump reads requests serially and dispatches each before reading the
// next; this is what gives same-player guesses their submission order.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		_ = c.conn.Close()
		log.Debug().Str("conn", c.id).Msg("player disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("read error")
			}
			return
		}
		resp := c.dispatcher.Handle(ctx, c.state, raw)
		buf, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Str("conn", c.id).Msg("encode response")
			continue
		}
		if !c.enqueue(ctx, buf) {
			return
		}
	}
}

// enqueue hands a response to writePump. Reports false when the writer or
// the request context is gone, so readPump never blocks on a full buffer
// nobody drains.
func (c *client) enqueue(ctx context.Context, buf []byte) bool {
	select {
	case c.send <- buf:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// writePump drains the send channel and pings the peer.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
