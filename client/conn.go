// Package client implements the participant side of a live classroom:
// the course connection, event routing, and the local state derived from
// server-pushed events.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/protocol"
)

const (
	// PongWait mirrors the server's heartbeat interval.
	PongWait = 60 * time.Second

	writeWait = 10 * time.Second

	defaultBackoffBase   = 500 * time.Millisecond
	defaultBackoffCap    = 30 * time.Second
	defaultMaxReconnects = 8
)

// ConnState is the observable connection status.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StateListener observes connection-state transitions.
type StateListener func(ConnState)

// ConnConfig holds the connection target and retry bounds.
type ConnConfig struct {
	// URL is the full websocket endpoint including course and token
	// query parameters. Derived from the session's course context.
	URL string

	// MaxReconnectAttempts bounds the redial loop after an unexpected
	// closure. Zero means the default of 8.
	MaxReconnectAttempts int

	// BackoffBase and BackoffCap shape the exponential redial delay.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Conn owns the persistent course socket: it dials, redials with bounded
// exponential backoff, and feeds every inbound frame to the dispatch
// function strictly in arrival order.
type Conn struct {
	cfg      ConnConfig
	dispatch func(protocol.Envelope)
	logger   *zap.Logger

	mu        sync.Mutex
	ws        *websocket.Conn
	state     ConnState
	listeners []StateListener
	closed    bool
	done      chan struct{}
}

// NewConn creates an unopened connection manager. Every decoded inbound
// envelope is passed to dispatch from a single goroutine.
func NewConn(cfg ConnConfig, dispatch func(protocol.Envelope), logger *zap.Logger) *Conn {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnects
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = defaultBackoffCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{
		cfg:      cfg,
		dispatch: dispatch,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// OnStateChange registers a connection-state observer. Listeners are
// invoked in registration order on every transition.
func (c *Conn) OnStateChange(fn StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current connection status.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the course endpoint and starts the read loop. It returns
// after the initial dial; redialing after later failures happens in the
// background.
func (c *Conn) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.ws != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.setState(StateConnecting)
	ws, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	c.ws = ws
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readLoop(ws)
	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	_ = ws.SetReadDeadline(time.Now().Add(PongWait))
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(PongWait))
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteMessage(websocket.PongMessage, []byte(data))
	})
	return ws, nil
}

// Send encodes and writes one outbound command. Without an open
// connection the command is dropped and ErrNotConnected returned.
func (c *Conn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.ws == nil || c.state != StateConnected {
		return ErrNotConnected
	}
	data, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down. Safe to call more than once; every
// later operation is a guarded no-op.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = ws.Close()
	}
	c.setState(StateDisconnected)
}

// readLoop reads frames sequentially and dispatches them in arrival
// order. Decode failures are logged and skipped; a read error hands off
// to the redial loop.
func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			_ = ws.Close()
			c.mu.Lock()
			closed := c.closed
			if c.ws == ws {
				c.ws = nil
			}
			c.mu.Unlock()
			if closed {
				return
			}
			c.logger.Warn("classroom connection lost", zap.Error(err))
			c.reconnect()
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(PongWait))

		env, err := protocol.Decode(raw)
		if err != nil {
			// Fail closed on the message, never on the connection.
			c.logger.Warn("discarding malformed message", zap.Error(err))
			continue
		}
		if c.dispatch != nil {
			c.dispatch(env)
		}
	}
}

// reconnect redials with exponential backoff until it succeeds, the
// attempt bound is exceeded, or the session closes.
func (c *Conn) reconnect() {
	c.setState(StateConnecting)
	delay := c.cfg.BackoffBase
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > c.cfg.BackoffCap {
			delay = c.cfg.BackoffCap
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		ws, err := c.dial(ctx)
		cancel()
		if err != nil {
			c.logger.Info("reconnect failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.cfg.MaxReconnectAttempts),
				zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = ws.Close()
			return
		}
		c.ws = ws
		c.mu.Unlock()

		c.setState(StateConnected)
		go c.readLoop(ws)
		return
	}
	c.logger.Error("giving up on classroom connection",
		zap.Int("attempts", c.cfg.MaxReconnectAttempts))
	c.setState(StateDisconnected)
}

func (c *Conn) setState(s ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	listeners := make([]StateListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
