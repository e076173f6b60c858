// Package ws carries the broadcast stream over WebSocket: an upgrade
// handler plus per-connection plumbing on the server side, and the
// reconnecting subscriber session on the client side.
package ws

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"fleet-hub/internal/realtime"
)

var (
	errConnClosed = errors.New("ws: connection closed")
	errQueueFull  = errors.New("ws: send queue full")
)

// sendQueueSize bounds the per-subscriber backlog. A subscriber that
// falls further behind than this loses frames rather than stalling
// fan-out to everyone else.
const sendQueueSize = 64

// subscriberConn adapts one WebSocket connection to realtime.Sender.
// Writes go through a buffered queue drained by a single write pump, so
// Send never blocks on the network.
type subscriberConn struct {
	ws        *websocket.Conn
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSubscriberConn(ws *websocket.Conn) *subscriberConn {
	return &subscriberConn{
		ws:   ws,
		out:  make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Ready reports whether the connection can still accept frames.
func (c *subscriberConn) Ready() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Send enqueues one frame. A full queue is an error; the frame is dropped
// for this subscriber only.
func (c *subscriberConn) Send(data []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		return errQueueFull
	}
}

func (c *subscriberConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump drains the send queue onto the wire. It owns all writes to
// the underlying connection.
func (c *subscriberConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		}
	}
}

// readLoop discards inbound frames; its only job is to notice the peer
// going away. onExit runs exactly once when the connection dies.
func (c *subscriberConn) readLoop(onExit func()) {
	defer onExit()
	defer c.close()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Handler upgrades HTTP requests to WebSocket subscriber connections and
// wires them into the hub.
type Handler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewHandler constructs a subscriber upgrade handler.
func NewHandler(hub *realtime.Hub, logger *log.Logger) (*Handler, error) {
	if hub == nil {
		return nil, errors.New("ws handler: nil hub")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}, nil
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade: %v", err)
		return
	}

	conn := newSubscriberConn(ws)
	go conn.writePump()

	id := h.hub.Register(conn)
	go conn.readLoop(func() {
		h.hub.Unregister(id)
	})
}
