package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState is the lifecycle state of a connection. States only move forward.
type ConnState int32

const (
	StatePending ConnState = iota
	StateAuthorizing
	StateActive
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthorizing:
		return "authorizing"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one live websocket connection bound to a single room.
type Conn struct {
	id       string
	ws       *websocket.Conn
	identity Identity
	roomID   string
	state    atomic.Int32
	config   WSConfig
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newConn(ws *websocket.Conn, config WSConfig, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		ws:     ws,
		config: config,
		send:   make(chan []byte, config.SendBuffer),
		logger: logger.With(slog.String("connection", id)),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Identity() Identity {
	return c.identity
}

func (c *Conn) RoomID() string {
	return c.roomID
}

func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// advance moves the connection to a later state. It reports false if the connection
// is already in that state or beyond it.
func (c *Conn) advance(to ConnState) bool {
	for {
		cur := c.state.Load()
		if int32(to) <= cur {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}

// Send enqueues a frame for the write loop without blocking.
func (c *Conn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write loop after the queued frames are flushed.
// It is safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.advance(StateClosed)
}

// closeWithCode writes a close frame and tears the transport down.
// It must not be called once the write loop is running.
func (c *Conn) closeWithCode(code int, reason string) {
	deadline := time.Now().Add(c.config.WriteWait)
	if err := c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		c.logger.Debug("writing close frame", slog.String("error", err.Error()))
	}
	c.ws.Close()
	c.Close()
}

func (c *Conn) readLoop(ctx context.Context, handle func(ctx context.Context, c *Conn, data []byte), onClose func(c *Conn)) {
	c.logger.Debug("read loop started")
	defer func() {
		onClose(c)
		c.Close()
		c.ws.Close()
		c.logger.Debug("read loop stopped")
	}()

	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		format, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Info("connection closed by peer", slog.String("reason", err.Error()))
				return
			}
			if websocket.IsUnexpectedCloseError(err) {
				c.logger.Warn("unexpected close", slog.String("error", err.Error()))
				return
			}
			c.logger.Debug("read stopped", slog.String("error", err.Error()))
			return
		}

		if format != websocket.TextMessage {
			c.logger.Debug("dropping non text frame", slog.Int("format", format))
			continue
		}

		handle(ctx, c, data)
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	c.logger.Debug("write loop started")
	ticker := time.NewTicker(c.config.pingPeriod())
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.logger.Debug("write loop stopped")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("writing frame", slog.String("error", err.Error()))
				return
			}
		case <-ctx.Done():
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("writing ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}
