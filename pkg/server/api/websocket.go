package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/oracle/aggregate"
	"tc.com/price-aggregator/pkg/oracle/price"
	"tc.com/price-aggregator/pkg/oracle/registry"
)

// WebSocketServer periodically recomputes aggregates for all active
// pairs and streams them to subscribed clients.
type WebSocketServer struct {
	addr    string
	svc     *aggregate.Service
	pairs   *registry.PairRegistry
	refresh time.Duration
	logger  *logging.Logger

	upgrader websocket.Upgrader

	// Client management
	mu      sync.RWMutex
	clients map[*WebSocketClient]bool

	// Server control
	ctx    context.Context
	cancel context.CancelFunc
}

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	conn            *websocket.Conn
	send            chan []byte
	server          *WebSocketServer
	subscribedAll   bool
	subscribedPairs map[string]bool
	mu              sync.RWMutex
}

// WebSocketMessage represents a client message.
type WebSocketMessage struct {
	Type  string   `json:"type"`  // "subscribe", "unsubscribe", "ping"
	Pairs []string `json:"pairs"` // List of pair symbols to subscribe to
}

// PriceUpdateMessage is sent to clients.
type PriceUpdateMessage struct {
	Type      string        `json:"type"`      // "price_update"
	Timestamp string        `json:"timestamp"` // ISO 8601 timestamp
	Prices    []PairPricing `json:"prices"`
}

// PairPricing is one pair's aggregate in a price update.
type PairPricing struct {
	Pair         string `json:"pair"`
	Median       string `json:"median"`
	WeightedMean string `json:"weighted_mean"`
}

const (
	// writeWait is the deadline for a single write to a client.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead; pongs and messages reset it.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so a healthy client
	// always answers in time.
	pingPeriod = 54 * time.Second
)

// NewWebSocketServer creates a new WebSocket streaming server.
func NewWebSocketServer(addr string, svc *aggregate.Service, pairs *registry.PairRegistry, refresh time.Duration, logger *logging.Logger) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketServer{
		addr:    addr,
		svc:     svc,
		pairs:   pairs,
		refresh: refresh,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Allow all origins (configure CORS as needed)
				return true
			},
		},
		clients: make(map[*WebSocketClient]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the WebSocket server and the refresh loop.
func (s *WebSocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.refreshLoop()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server error", "error", err)
		}
	}()

	// Wait for context cancellation
	<-s.ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Stop stops the WebSocket server.
func (s *WebSocketServer) Stop() {
	s.cancel()
}

// refreshLoop recomputes aggregates for all active pairs on a fixed
// cadence and broadcasts them.
func (s *WebSocketServer) refreshLoop() {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.broadcastAggregates()
		}
	}
}

// broadcastAggregates computes and sends fresh aggregates for every
// active pair. Pairs that cannot reach quorum are skipped this round.
func (s *WebSocketServer) broadcastAggregates() {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()
	if clientCount == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.refresh)
	defer cancel()

	decimals := s.svc.CanonicalDecimals()
	pricings := make([]PairPricing, 0)
	for _, symbol := range s.pairs.ActiveSymbols() {
		result, err := s.svc.AggregatedPrice(ctx, symbol)
		if err != nil {
			s.logger.Debug("Skipping pair in push round", "pair", symbol, "error", err.Error())
			continue
		}
		pricings = append(pricings, PairPricing{
			Pair:         symbol,
			Median:       price.Render(result.Median, decimals),
			WeightedMean: price.Render(result.WeightedMean, decimals),
		})
	}
	if len(pricings) == 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UTC().Format(time.RFC3339)
	for client := range s.clients {
		client.sendFiltered(pricings, now)
	}
}

// handleWebSocket handles new WebSocket connections.
func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &WebSocketClient{
		conn:            conn,
		send:            make(chan []byte, 256),
		server:          s,
		subscribedAll:   true, // Subscribe to all by default
		subscribedPairs: make(map[string]bool),
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	s.logger.Debug("WebSocket client connected", "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

// removeClient unregisters a client and closes its connection.
func (s *WebSocketServer) removeClient(client *WebSocketClient) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
	s.mu.Unlock()
	_ = client.conn.Close()
}

// sendFiltered queues the update for the client, reduced to its
// subscribed pairs.
func (c *WebSocketClient) sendFiltered(pricings []PairPricing, timestamp string) {
	c.mu.RLock()
	all := c.subscribedAll
	filtered := make([]PairPricing, 0, len(pricings))
	for _, p := range pricings {
		if all || c.subscribedPairs[p.Pair] {
			filtered = append(filtered, p)
		}
	}
	c.mu.RUnlock()

	if len(filtered) == 0 {
		return
	}

	payload, err := json.Marshal(PriceUpdateMessage{
		Type:      "price_update",
		Timestamp: timestamp,
		Prices:    filtered,
	})
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	default:
		// Channel full, skip
		c.server.logger.Warn("Client send channel full, dropping update")
	}
}

// readPump processes subscription messages from the client. The read
// deadline is refreshed by every pong and message, so a half-open
// connection gets torn down instead of leaking the client.
func (c *WebSocketClient) readPump() {
	defer c.server.removeClient(c)

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg WebSocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.mu.Lock()
			if len(msg.Pairs) == 0 {
				c.subscribedAll = true
			} else {
				c.subscribedAll = false
				for _, pair := range msg.Pairs {
					c.subscribedPairs[pair] = true
				}
			}
			c.mu.Unlock()
		case "unsubscribe":
			c.mu.Lock()
			c.subscribedAll = false
			for _, pair := range msg.Pairs {
				delete(c.subscribedPairs, pair)
			}
			c.mu.Unlock()
		case "ping":
			pong, _ := json.Marshal(map[string]string{"type": "pong"})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// writePump writes queued messages to the connection and pings on a
// cadence shorter than the read deadline.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
