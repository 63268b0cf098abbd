// Package client is the connection manager: it owns the websocket session,
// reconnects with a bounded retry policy, defers the room join until the
// transport is open and turns inbound frames into ordered events.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/holdem-client/internal/events"
	"github.com/lox/holdem-client/internal/protocol"
	"github.com/lox/holdem-client/internal/state"
	"github.com/lox/holdem-client/internal/table"
)

const writeWait = 10 * time.Second

// Options configures a Client
type Options struct {
	URL               string
	ConnectTimeout    time.Duration
	ReconnectAttempts int // retries after the first failed dial
	ReconnectDelay    time.Duration
	PingInterval      time.Duration
	SendBuffer        int
	Clock             quartz.Clock
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions(serverURL string) Options {
	return Options{
		URL:               serverURL,
		ConnectTimeout:    10 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		PingInterval:      54 * time.Second,
		SendBuffer:        256,
	}
}

// Client is the connection manager for one player at one table
type Client struct {
	opts       Options
	clock      quartz.Clock
	logger     *log.Logger
	dialer     *websocket.Dialer
	dispatcher *events.Dispatcher
	reconciler *state.Reconciler

	mu          sync.Mutex
	state       ConnState
	sess        *session
	join        *joinRequest
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	terminalErr error
}

// New creates a client. Nothing is dialled until Connect.
func New(opts Options, logger *log.Logger) *Client {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 54 * time.Second
	}

	logger = logger.WithPrefix("client")
	return &Client{
		opts:   opts,
		clock:  opts.Clock,
		logger: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.ConnectTimeout,
		},
		dispatcher: events.NewDispatcher(logger),
		reconciler: state.NewReconciler(),
		state:      StateDisconnected,
	}
}

// Subscribe registers an ordered event subscriber
func (c *Client) Subscribe() *events.Subscription {
	return c.dispatcher.Subscribe()
}

// Connect starts the connection loop in the background and returns
// immediately. The loop runs until Disconnect, until ctx is cancelled, or
// until a terminal state is reached.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := websocketURL(c.opts.URL); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyConnected
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.terminalErr = nil
	c.state = StateConnecting

	go c.run(loopCtx, cancel, c.done)
	return nil
}

// Disconnect closes the transport cleanly, forgets any join request and
// leaves the client Disconnected. It blocks until the loop has exited.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.join = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Info("Disconnected from server")
	return nil
}

// Close disconnects and ends every subscription once queued events are delivered
func (c *Client) Close() error {
	err := c.Disconnect()
	c.dispatcher.Close()
	return err
}

// Done is closed when the current connection loop exits
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// Err returns the terminal error of the last loop: a JoinRejectedError,
// ErrReconnectExhausted, or nil after a clean disconnect
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminalErr
}

// State returns the current lifecycle state
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the transport is open, regardless of join status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

// Session returns a copy of the live session, if any
func (c *Client) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return Session{}, false
	}
	return c.sess.Session, true
}

// Snapshot returns the current game state, or nil
func (c *Client) Snapshot() *table.GameState {
	return c.reconciler.Current()
}

// View returns the local player's view of the current snapshot
func (c *Client) View() state.View {
	c.mu.Lock()
	var playerID string
	if c.sess != nil {
		playerID = c.sess.PlayerID
	}
	c.mu.Unlock()

	return c.reconciler.View(playerID)
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) publish(ev events.Event) {
	c.dispatcher.Publish(ev)
}

type sessionEnd int

const (
	endLost sessionEnd = iota
	endClosed
	endRejected
)

// run is the connection loop. It is the only publisher of events.
func (c *Client) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	failures := 0
	first := true
	for {
		if !first {
			if !c.sleep(ctx, c.opts.ReconnectDelay) {
				c.finish(StateDisconnected, nil)
				return
			}
		}
		first = false

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.finish(StateDisconnected, nil)
				return
			}

			failures++
			c.logger.Warn("Connection attempt failed", "attempt", failures, "error", err)
			if failures > c.opts.ReconnectAttempts {
				exhausted := fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, failures, err)
				c.logger.Error("Giving up on server", "error", exhausted)
				c.finish(StateFailed, exhausted)
				c.publish(events.Error{Kind: events.ErrorConnection, Err: exhausted, Fatal: true})
				return
			}
			c.publish(events.Error{Kind: events.ErrorConnection, Err: err})
			continue
		}

		attempt := failures + 1
		failures = 0

		end, err := c.serve(ctx, conn, attempt)
		switch end {
		case endClosed:
			c.finish(StateDisconnected, nil)
			return
		case endRejected:
			c.finish(StateJoinFailed, err)
			return
		default:
			c.setState(StateConnecting)
			c.logger.Warn("Lost connection to server", "error", err)
			c.publish(events.Error{Kind: events.ErrorConnection, Err: err})
		}
	}
}

// sleep waits for d on the client's clock, returning false if ctx ends first
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := c.clock.NewTimer(d, "reconnect")
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) finish(s ConnState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = s
	c.sess = nil
	c.running = false
	c.terminalErr = err
	if s.Terminal() {
		c.join = nil
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := websocketURL(c.opts.URL)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Connecting to server", "url", u)
	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

// serve runs one session over conn until it ends
func (c *Client) serve(ctx context.Context, conn *websocket.Conn, attempt int) (sessionEnd, error) {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &session{
		Session: Session{
			ID:      uuid.NewString(),
			Started: c.clock.Now(),
		},
		send: make(chan *protocol.Message, c.opts.SendBuffer),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump(sessCtx, conn, sess.send)
	}()

	c.mu.Lock()
	c.sess = sess
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("Connected to server", "session", sess.ID, "attempt", attempt)
	c.publish(events.Connected{SessionID: sess.ID, Attempt: attempt})

	// The join fires from the connected transition, never from a timer
	c.mu.Lock()
	if c.join != nil && !sess.joinSent {
		if err := c.sendJoinLocked(sess, c.join); err != nil {
			c.logger.Error("Failed to send join", "error", err)
		}
	}
	c.mu.Unlock()

	end, err := c.readLoop(sessCtx, conn, sess)

	cancel()
	wg.Wait()

	c.mu.Lock()
	c.sess = nil
	c.mu.Unlock()
	c.reconciler.Reset()

	disconnectErr := err
	if end == endClosed {
		disconnectErr = nil
	}
	c.publish(events.Disconnected{SessionID: sess.ID, Err: disconnectErr})
	return end, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, sess *session) (sessionEnd, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return endClosed, nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return endLost, fmt.Errorf("transport closed: %w", err)
		}

		if rejected := c.handleFrame(sess, data); rejected != nil {
			return endRejected, rejected
		}
	}
}

// writePump owns all writes to conn. It exits when ctx ends, after sending
// a close frame, or on the first write failure.
func (c *Client) writePump(ctx context.Context, conn *websocket.Conn, send <-chan *protocol.Message) {
	ticker := c.clock.NewTicker(c.opts.PingInterval, "ping")
	defer func() {
		ticker.Stop()
		_ = conn.Close() // Unblocks the reader
	}()

	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write message", "type", msg.Type, "error", err)
				return
			}
			c.logger.Debug("Sent message", "type", msg.Type, "request_id", msg.RequestID)

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")) // Best effort on shutdown
			return
		}
	}
}

// websocketURL normalises a configured server address into a ws/wss URL
func websocketURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("server URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}
