package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/oracle/aggregate"
	"tc.com/price-aggregator/pkg/oracle/feed"
	"tc.com/price-aggregator/pkg/oracle/registry"
)

type staticFeed struct {
	value *big.Int
}

func (f *staticFeed) Read(_ context.Context) (feed.Reading, error) {
	return feed.Reading{Value: new(big.Int).Set(f.value), Timestamp: time.Now()}, nil
}

func (f *staticFeed) Type() feed.Type {
	return feed.TypeProxy
}

func newStreamFixture(t *testing.T) (*WebSocketServer, *httptest.Server) {
	t.Helper()

	const admin = "admin"
	auth := registry.NewSingleAdmin(admin)
	logger := logging.NewNoopLogger()
	sources := registry.NewSourceRegistry(auth, logger)
	pairs := registry.NewPairRegistry(auth, sources, logger)

	value, ok := new(big.Int).SetString("3000000000000000000000", 10)
	require.True(t, ok)
	require.NoError(t, sources.AddSource(admin, registry.Source{
		Handle:    "proxy-main",
		Type:      feed.TypeProxy,
		Weight:    big.NewInt(10000),
		Heartbeat: time.Minute,
		Decimals:  18,
		Feed:      &staticFeed{value: value},
	}))
	require.NoError(t, pairs.AddPair(admin, registry.Pair{
		Symbol: "ETH/USD", Base: "ETH", Quote: "USD", Sources: []string{"proxy-main"},
	}))

	svc := aggregate.NewService(sources, pairs, auth, logger, aggregate.Options{})
	ws := NewWebSocketServer("", svc, pairs, 20*time.Millisecond, logger)

	server := httptest.NewServer(http.HandlerFunc(ws.handleWebSocket))
	t.Cleanup(server.Close)
	t.Cleanup(ws.Stop)
	go ws.refreshLoop()

	return ws, server
}

func (s *WebSocketServer) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func dialStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketServer_StreamsUpdates(t *testing.T) {
	ws, server := newStreamFixture(t)

	conn := dialStream(t, server)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return ws.clientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update PriceUpdateMessage
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, "price_update", update.Type)
	require.Len(t, update.Prices, 1)
	assert.Equal(t, "ETH/USD", update.Prices[0].Pair)
	assert.Equal(t, "3000", update.Prices[0].Median)
}

func TestWebSocketServer_PingPong(t *testing.T) {
	_, server := newStreamFixture(t)

	conn := dialStream(t, server)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping"}))

	// Price pushes may interleave with the pong.
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == "pong" {
			return
		}
	}
}

func TestWebSocketServer_RemovesDeadClients(t *testing.T) {
	ws, server := newStreamFixture(t)

	conn := dialStream(t, server)
	require.Eventually(t, func() bool { return ws.clientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// Once the connection dies the read pump must unregister the client
	// so broadcasts stop queueing into a dead send channel.
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ws.clientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
