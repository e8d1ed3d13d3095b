package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/cosync/internal/model"
)

// scriptConn is an in-memory Conn fed by the test: frames pushed with
// serve come out of ReadMessage, failures pushed with fail surface as
// read errors, and every frame the client writes is recorded.
type scriptConn struct {
	frames chan []byte
	errs   chan error
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written []frame
}

func newScriptConn() *scriptConn {
	return &scriptConn{
		frames: make(chan []byte, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *scriptConn) serve(t *testing.T, f frame) {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	c.frames <- data
}

func (c *scriptConn) fail(err error) {
	c.errs <- err
}

func (c *scriptConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.frames:
		return 1, data, nil
	case err := <-c.errs:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *scriptConn) WriteJSON(v any) error {
	f, ok := v.(frame)
	if !ok {
		return errors.New("unexpected write type")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, f)
	return nil
}

func (c *scriptConn) writtenFrames() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, len(c.written))
	copy(out, c.written)
	return out
}

func (c *scriptConn) SetReadDeadline(time.Time) error { return nil }

func (c *scriptConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// scriptDialer hands out scripted connections in order, blocking when
// none remain so a reconnecting client parks until the test ends.
type scriptDialer struct {
	conns chan Conn
}

func newScriptDialer(conns ...Conn) *scriptDialer {
	d := &scriptDialer{conns: make(chan Conn, len(conns))}
	for _, conn := range conns {
		d.conns <- conn
	}
	return d
}

func (d *scriptDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	select {
	case conn := <-d.conns:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// timeoutErr mimics the deadline error a real websocket read returns.
type timeoutErr struct{}

func (timeoutErr) Error() string { return "read deadline exceeded" }
func (timeoutErr) Timeout() bool { return true }

func newTestClient(t *testing.T, dialer Dialer) *Client {
	t.Helper()
	client, err := NewClient(Config{URL: "ws://test/realtime", Token: "tok", Dialer: dialer})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := newTestClient(t, newScriptDialer())

	_, err := client.Subscribe(Filter{Entity: EntityMessages}, nil, nil)
	assert.Error(t, err)

	_, err = client.Subscribe(Filter{}, func(Event) {}, nil)
	assert.Error(t, err)
}

func TestSubscribeReplacesSameKey(t *testing.T) {
	client := newTestClient(t, newScriptDialer())

	statusCh := make(chan Status, 4)
	first, err := client.Subscribe(
		Filter{Entity: EntityMessages, ScopeID: "scope-1", Events: ActionInsert},
		func(Event) {},
		func(s Status) { statusCh <- s },
	)
	require.NoError(t, err)
	require.Equal(t, 1, client.SubscriptionCount())

	// Same (entity, scope) pair: the prior holder is closed, the
	// registry keeps exactly one entry.
	_, err = client.Subscribe(
		Filter{Entity: EntityMessages, ScopeID: "scope-1", Events: ActionInsert},
		func(Event) {},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, 1, client.SubscriptionCount())
	assert.Equal(t, StatusClosed, waitFor(t, statusCh, "prior subscription closed"))

	// Closing the displaced handle again is a no-op.
	first.Close()
	assert.Equal(t, 1, client.SubscriptionCount())
}

func TestSubscriptionCloseAlwaysRemovesRegistryEntry(t *testing.T) {
	client := newTestClient(t, newScriptDialer())

	// No connection is up; teardown must still clean the registry.
	sub, err := client.Subscribe(
		Filter{Entity: EntityNotifications, Events: ActionAny},
		func(Event) {},
		nil,
	)
	require.NoError(t, err)
	require.Equal(t, 1, client.SubscriptionCount())

	sub.Close()
	assert.Equal(t, 0, client.SubscriptionCount())
	sub.Close()
	assert.Equal(t, 0, client.SubscriptionCount())
}

func TestRunDeliversMatchingEvents(t *testing.T) {
	conn := newScriptConn()
	client := newTestClient(t, newScriptDialer(conn))

	eventCh := make(chan Event, 4)
	statusCh := make(chan Status, 4)
	_, err := client.Subscribe(
		Filter{Entity: EntityMessages, ScopeID: "scope-1", Events: ActionInsert},
		func(e Event) { eventCh <- e },
		func(s Status) { statusCh <- s },
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	// The fresh connection replays the subscription.
	assert.Equal(t, StatusSubscribed, waitFor(t, statusCh, "subscribed status"))
	frames := conn.writtenFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "subscribe", frames[0].Type)
	assert.Equal(t, EntityMessages, frames[0].Entity)
	assert.Equal(t, "scope-1", frames[0].ScopeID)

	conn.serve(t, frame{Type: "heartbeat"})
	conn.serve(t, frame{
		Type:    "event",
		Entity:  EntityMessages,
		Action:  ActionInsert,
		Payload: json.RawMessage(`{"id":"srv-1","scope_id":"scope-1","sender_id":"user-2","content":"hi"}`),
	})

	event := waitFor(t, eventCh, "message event")
	require.NotNil(t, event.Message)
	assert.Equal(t, "srv-1", event.Message.ID)
	assert.Equal(t, model.MessageConfirmed, event.Message.Status)

	// A different scope never reaches this handler.
	conn.serve(t, frame{
		Type:    "event",
		Entity:  EntityMessages,
		Action:  ActionInsert,
		Payload: json.RawMessage(`{"id":"srv-2","scope_id":"scope-other","sender_id":"user-2","content":"nope"}`),
	})
	conn.serve(t, frame{
		Type:    "event",
		Entity:  EntityMessages,
		Action:  ActionInsert,
		Payload: json.RawMessage(`{"id":"srv-3","scope_id":"scope-1","sender_id":"user-2","content":"again"}`),
	})
	event = waitFor(t, eventCh, "second scope-1 event")
	assert.Equal(t, "srv-3", event.Message.ID)
}

func TestRunDropsMalformedFrames(t *testing.T) {
	conn := newScriptConn()
	client := newTestClient(t, newScriptDialer(conn))

	eventCh := make(chan Event, 4)
	_, err := client.Subscribe(
		Filter{Entity: EntityMessages, ScopeID: "scope-1", Events: ActionInsert},
		func(e Event) { eventCh <- e },
		nil,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	// Undecodable payloads and unknown entities are dropped at the
	// boundary; the loop keeps running.
	conn.frames <- []byte(`{not json`)
	conn.serve(t, frame{Type: "event", Entity: EntityMessages, Action: ActionInsert, Payload: json.RawMessage(`"not an object"`)})
	conn.serve(t, frame{Type: "event", Entity: Entity("widgets"), Action: ActionInsert, Payload: json.RawMessage(`{}`)})
	conn.serve(t, frame{
		Type:    "event",
		Entity:  EntityMessages,
		Action:  ActionInsert,
		Payload: json.RawMessage(`{"id":"srv-1","scope_id":"scope-1","sender_id":"user-2","content":"ok"}`),
	})

	event := waitFor(t, eventCh, "surviving event")
	assert.Equal(t, "srv-1", event.Message.ID)
}

func TestHeartbeatTimeoutBroadcastsTimedOut(t *testing.T) {
	conn := newScriptConn()
	client := newTestClient(t, newScriptDialer(conn))

	statusCh := make(chan Status, 4)
	_, err := client.Subscribe(
		Filter{Entity: EntityNotifications, Events: ActionAny},
		func(Event) {},
		func(s Status) { statusCh <- s },
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	require.Equal(t, StatusSubscribed, waitFor(t, statusCh, "subscribed status"))

	conn.fail(timeoutErr{})
	assert.Equal(t, StatusTimedOut, waitFor(t, statusCh, "timed-out status"))
}

func TestReadErrorBroadcastsChannelError(t *testing.T) {
	conn := newScriptConn()
	client := newTestClient(t, newScriptDialer(conn))

	statusCh := make(chan Status, 4)
	_, err := client.Subscribe(
		Filter{Entity: EntityApprovals, Events: ActionAny},
		func(Event) {},
		func(s Status) { statusCh <- s },
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	require.Equal(t, StatusSubscribed, waitFor(t, statusCh, "subscribed status"))

	conn.fail(errors.New("connection reset"))
	assert.Equal(t, StatusChannelError, waitFor(t, statusCh, "channel-error status"))
}

func TestReconnectReplaysSubscriptions(t *testing.T) {
	first := newScriptConn()
	second := newScriptConn()
	client := newTestClient(t, newScriptDialer(first, second))

	statusCh := make(chan Status, 8)
	_, err := client.Subscribe(
		Filter{Entity: EntityMessages, ScopeID: "scope-1", Events: ActionInsert},
		func(Event) {},
		func(s Status) { statusCh <- s },
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	require.Equal(t, StatusSubscribed, waitFor(t, statusCh, "first subscribed"))

	first.fail(errors.New("connection reset"))
	require.Equal(t, StatusChannelError, waitFor(t, statusCh, "degraded status"))

	// The replacement connection gets the same subscribe frame.
	require.Equal(t, StatusSubscribed, waitFor(t, statusCh, "resubscribed"))
	frames := second.writtenFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "subscribe", frames[0].Type)
	assert.Equal(t, "scope-1", frames[0].ScopeID)
	assert.Equal(t, 1, client.SubscriptionCount())
}

func TestCloseReleasesAllSubscriptions(t *testing.T) {
	client := newTestClient(t, newScriptDialer())

	statusCh := make(chan Status, 4)
	_, err := client.Subscribe(
		Filter{Entity: EntityMessages, ScopeID: "scope-1", Events: ActionInsert},
		func(Event) {},
		func(s Status) { statusCh <- s },
	)
	require.NoError(t, err)
	_, err = client.Subscribe(
		Filter{Entity: EntityNotifications, Events: ActionAny},
		func(Event) {},
		nil,
	)
	require.NoError(t, err)
	require.Equal(t, 2, client.SubscriptionCount())

	client.Close()
	assert.Equal(t, 0, client.SubscriptionCount())
	assert.Equal(t, StatusClosed, waitFor(t, statusCh, "closed status"))

	_, err = client.Subscribe(Filter{Entity: EntityMessages}, func(Event) {}, nil)
	assert.Error(t, err)
}
