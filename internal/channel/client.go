package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
)

// State is the connection state of the channel client.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// Conn is the minimal websocket surface the client needs. Production
// code uses a *websocket.Conn; tests substitute a scripted connection.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer establishes channel connections. Production code wraps the
// websocket dialer; tests substitute an in-memory implementation.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// websocketDialer adapts the fasthttp websocket client dialer.
type websocketDialer struct {
	dialer *websocket.Dialer
}

func (d *websocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// heartbeatTimeout is how long the read loop waits for any server
// frame (events or heartbeats) before declaring the channel timed out.
const heartbeatTimeout = 45 * time.Second

// reconnectBase and reconnectMax bound the backoff between redial
// attempts after a connection failure.
const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// frame is the wire format of the channel protocol. Client-to-server
// frames are subscribe/unsubscribe; server-to-client frames are
// event/heartbeat.
type frame struct {
	Type    string          `json:"type"`
	Entity  Entity          `json:"entity,omitempty"`
	ScopeID string          `json:"scope_id,omitempty"`
	Events  Action          `json:"events,omitempty"`
	Action  Action          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client manages one realtime channel connection and the registry of
// live subscriptions on it. It reconnects on its own after failures
// and replays every open subscription on the new connection; it never
// re-fetches data itself: dependents are told about the degraded
// state through their status handlers and revalidate by fetch.
type Client struct {
	url    string
	token  string
	dialer Dialer
	logger *slog.Logger

	mu     sync.Mutex
	conn   Conn
	subs   map[key]*Subscription
	state  State
	closed bool
	done   chan struct{}
}

// Config holds the settings for creating a channel client.
type Config struct {
	// URL is the websocket endpoint of the realtime channel.
	URL string

	// Token is the opaque caller identity token, sent during the
	// handshake.
	Token string

	// Dialer overrides the connection factory. Nil means the real
	// websocket dialer.
	Dialer Dialer

	// Logger is used for structured logging. Nil means slog.Default().
	Logger *slog.Logger
}

// NewClient creates a channel client. It does not connect; call Run
// from a goroutine to start the connection loop.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("channel: URL is required")
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = &websocketDialer{dialer: websocket.DefaultDialer}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    config.URL,
		token:  config.Token,
		dialer: dialer,
		logger: logger,
		subs:   make(map[key]*Subscription),
		state:  StateConnecting,
		done:   make(chan struct{}),
	}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubscriptionCount returns the number of open subscriptions. Views
// assert this returns to zero after unmount.
func (c *Client) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Subscribe opens a live-update subscription for the given filter.
// At most one subscription exists per (entity, scope) pair: opening a
// second one closes the prior subscription first. The handler receives
// every matching event; delivery is at least once, so duplicates must
// be tolerated downstream. The status handler receives lifecycle
// transitions and may be nil.
func (c *Client) Subscribe(filter Filter, handler Handler, onStatus StatusHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("channel: handler is required")
	}
	if filter.Entity == "" {
		return nil, fmt.Errorf("channel: filter entity is required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("channel: client is closed")
	}

	k := key{entity: filter.Entity, scope: filter.ScopeID}
	prior := c.subs[k]

	sub := &Subscription{
		client:   c,
		key:      k,
		filter:   filter,
		handler:  handler,
		onStatus: onStatus,
	}
	c.subs[k] = sub
	conn := c.conn
	c.mu.Unlock()

	// The prior holder is released outside the lock so its Closed
	// notification cannot deadlock back into the client.
	if prior != nil {
		c.release(prior, false)
	}

	if conn != nil {
		if err := conn.WriteJSON(frame{
			Type:    "subscribe",
			Entity:  filter.Entity,
			ScopeID: filter.ScopeID,
			Events:  filter.Events,
		}); err != nil {
			// The connection is going down; the read loop will notice
			// and the reconnect path replays this subscription. The
			// subscription itself stays registered.
			c.logger.Debug("subscribe frame failed, deferred to reconnect",
				"entity", filter.Entity,
				"scope_id", filter.ScopeID,
				"error", err,
			)
		} else {
			sub.notify(StatusSubscribed)
		}
	}

	return sub, nil
}

// unsubscribe releases one subscription. The registry entry is removed
// on every path, connection up or down, so a closing view can never
// leak its subscription.
func (c *Client) unsubscribe(sub *Subscription) {
	c.release(sub, true)
}

// release removes a subscription from the registry. When sendFrame is
// true and the connection is up, a best-effort unsubscribe frame tells
// the server to stop sending.
func (c *Client) release(sub *Subscription, sendFrame bool) {
	c.mu.Lock()
	if sub.closed {
		c.mu.Unlock()
		return
	}
	sub.closed = true
	if current, ok := c.subs[sub.key]; ok && current == sub {
		delete(c.subs, sub.key)
	}
	conn := c.conn
	c.mu.Unlock()

	if sendFrame && conn != nil {
		if err := conn.WriteJSON(frame{
			Type:    "unsubscribe",
			Entity:  sub.filter.Entity,
			ScopeID: sub.filter.ScopeID,
		}); err != nil {
			c.logger.Debug("unsubscribe frame failed",
				"entity", sub.filter.Entity,
				"scope_id", sub.filter.ScopeID,
				"error", err,
			)
		}
	}

	sub.notify(StatusClosed)
}

// notify invokes the status handler if one is registered.
func (s *Subscription) notify(status Status) {
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// Run drives the connection loop: dial, replay subscriptions, read
// until failure, back off, repeat. It returns when Close is called.
// Run must be started on its own goroutine; event handlers are invoked
// from it.
func (c *Client) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.setState(StateConnecting)

		header := http.Header{}
		header.Set("Authorization", "Bearer "+c.token)
		conn, err := c.dialer.Dial(ctx, c.url, header)
		if err != nil {
			c.logger.Warn("channel dial failed", "error", err)
			c.setState(StateError)
			c.broadcast(StatusChannelError)
			if !c.sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}
		backoff = reconnectBase

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()

		c.resubscribe(conn)

		status := c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		if !closed {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		conn.Close()

		if closed {
			return
		}
		c.broadcast(status)
	}
}

// resubscribe replays every registered subscription onto a fresh
// connection and reports Subscribed to each owner.
func (c *Client) resubscribe(conn Conn) {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if err := conn.WriteJSON(frame{
			Type:    "subscribe",
			Entity:  sub.filter.Entity,
			ScopeID: sub.filter.ScopeID,
			Events:  sub.filter.Events,
		}); err != nil {
			c.logger.Warn("resubscribe failed", "entity", sub.filter.Entity, "error", err)
			return
		}
		sub.notify(StatusSubscribed)
	}
}

// readLoop consumes frames until the connection fails, returning the
// status to broadcast: TimedOut when the heartbeat deadline lapsed,
// ChannelError otherwise.
func (c *Client) readLoop(conn Conn) Status {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(heartbeatTimeout)); err != nil {
			return StatusChannelError
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if deadline, ok := err.(interface{ Timeout() bool }); ok && deadline.Timeout() {
				c.logger.Warn("channel heartbeat timed out")
				return StatusTimedOut
			}
			c.logger.Debug("channel read failed", "error", err)
			return StatusChannelError
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("dropping malformed channel frame", "error", err)
			continue
		}

		switch f.Type {
		case "heartbeat", "subscribed":
			// Liveness only; the read deadline reset above is the
			// entire effect.
		case "event":
			event, err := decodeEvent(f.Entity, f.Action, f.Payload)
			if err != nil {
				c.logger.Warn("dropping undecodable channel event",
					"entity", f.Entity,
					"error", err,
				)
				continue
			}
			c.dispatch(event)
		default:
			c.logger.Debug("ignoring unknown channel frame", "type", f.Type)
		}
	}
}

// dispatch forwards one event to the handler of every subscription
// whose filter matches it.
func (c *Client) dispatch(event Event) {
	c.mu.Lock()
	handlers := make([]Handler, 0, 2)
	for _, sub := range c.subs {
		if sub.wants(event) {
			handlers = append(handlers, sub.handler)
		}
	}
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// broadcast reports a connection-level status to every subscription.
func (c *Client) broadcast(status Status) {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub.notify(status)
	}
}

// setState records a connection state transition.
func (c *Client) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// sleep waits for the backoff duration, returning false when the
// client is closed or the context is cancelled.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts the client down: every subscription is released and the
// connection torn down. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	subs := make([]*Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		c.release(sub, false)
	}
	if conn != nil {
		conn.Close()
	}
}
