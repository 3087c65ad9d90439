package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/scan"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// memBus hands out one buffered channel per bus channel.
type memBus struct {
	chans map[string]chan []byte
}

func newMemBus(channels ...string) *memBus {
	b := &memBus{chans: make(map[string]chan []byte)}
	for _, c := range channels {
		b.chans[c] = make(chan []byte, 8)
	}
	return b
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	ch, ok := b.chans[channel]
	if !ok {
		return errors.New("unknown channel")
	}
	ch <- payload
	return nil
}

func (b *memBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch, ok := b.chans[channel]
	if !ok {
		return nil, errors.New("unknown channel")
	}
	return ch, nil
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{scan.Channel: true}}
	assert.True(t, c.isSubscribed(scan.Channel))
	assert.False(t, c.isSubscribed("ch:other"))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:alerts:*"}})
	assert.True(t, c.isSubscribed("ch:alerts:telegram"))
	assert.False(t, c.isSubscribed("ch:other"))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{scan.Channel, "ch:alerts:*"}})
	assert.False(t, c.isSubscribed(scan.Channel))
	assert.False(t, c.isSubscribed("ch:alerts:telegram"))

	c.handleSubscription(subscribeMsg{Action: "bogus", Channels: []string{scan.Channel}})
	assert.False(t, c.isSubscribed(scan.Channel))
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	bus := newMemBus(scan.Channel, "ch:other")
	hub := NewHub(bus, testLogger(), Config{Mode: "Serve", Channels: []string{scan.Channel, "ch:other"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, hub)

	var status envelope
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, "status", status.Type)
	assert.JSONEq(t, `{"mode":"serve","uptime_seconds":0,"channels":["ch:scan","ch:other"]}`, string(status.Payload))

	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{scan.Channel}}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			if c.isSubscribed(scan.Channel) {
				return false
			}
		}
		return len(hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, scan.Channel, []byte(`{"run_id":"skipped"}`)))
	require.NoError(t, bus.Publish(ctx, "ch:other", []byte(`{"n":1}`)))

	var msg envelope
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "ch:other", msg.Channel)
	assert.JSONEq(t, `{"n":1}`, string(msg.Payload))
}

func TestHub_DropsNonJSONPayloads(t *testing.T) {
	bus := newMemBus(scan.Channel)
	hub := NewHub(bus, testLogger(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, hub)
	var status envelope
	require.NoError(t, conn.ReadJSON(&status))
	assert.JSONEq(t, `{"mode":"unknown","uptime_seconds":0,"channels":["ch:scan"]}`, string(status.Payload))

	require.NoError(t, bus.Publish(ctx, scan.Channel, []byte(`not json`)))
	require.NoError(t, bus.Publish(ctx, scan.Channel, []byte(`{"run_id":"r2"}`)))

	var msg envelope
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "scan_summary", msg.Type)
	assert.JSONEq(t, `{"run_id":"r2"}`, string(msg.Payload))
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(newMemBus(scan.Channel), testLogger(), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	conn := dial(t, hub)
	var status envelope
	require.NoError(t, conn.ReadJSON(&status))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, hub.ClientCount())

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
