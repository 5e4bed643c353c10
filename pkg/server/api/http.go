// Package api provides HTTP and WebSocket API endpoints for the price aggregator.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/metrics"
	"tc.com/price-aggregator/pkg/oracle/aggregate"
	"tc.com/price-aggregator/pkg/oracle/price"
	"tc.com/price-aggregator/pkg/oracle/registry"
)

// Server represents the HTTP API server.
type Server struct {
	addr   string
	svc    *aggregate.Service
	server *http.Server
	logger *logging.Logger
}

// NewServer creates a new HTTP API server over the aggregation service.
func NewServer(addr string, svc *aggregate.Service, logger *logging.Logger) *Server {
	return &Server{
		addr:   addr,
		svc:    svc,
		logger: logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price/median", s.handleMedian)
	mux.HandleFunc("/v1/price/weighted", s.handleWeighted)
	mux.HandleFunc("/v1/price/aggregated", s.handleAggregated)
	mux.HandleFunc("/v1/prices", s.handleAllPrices)
	mux.HandleFunc("/v1/prices/status", s.handleAllPricesStatus)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// priceResponse is the JSON shape of single-statistic endpoints.
type priceResponse struct {
	Pair  string `json:"pair"`
	Price string `json:"price"`
	Raw   string `json:"raw"`
}

// aggregatedResponse is the JSON shape of the aggregated endpoint. The
// two statistics come from independent fetch rounds and are not
// guaranteed to observe the same readings.
type aggregatedResponse struct {
	Pair            string `json:"pair"`
	Median          string `json:"median"`
	MedianRaw       string `json:"median_raw"`
	WeightedMean    string `json:"weighted_mean"`
	WeightedMeanRaw string `json:"weighted_mean_raw"`
}

// sourcePriceResponse is one entry of the all-prices views.
type sourcePriceResponse struct {
	Handle      string `json:"handle"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Raw         string `json:"raw"`
	Timestamp   string `json:"timestamp,omitempty"`
	Disputed    *bool  `json:"disputed,omitempty"`
}

// handleMedian handles /v1/price/median.
func (s *Server) handleMedian(w http.ResponseWriter, r *http.Request) {
	s.handlePrice(w, r, "/v1/price/median", s.svc.MedianPrice)
}

// handleWeighted handles /v1/price/weighted.
func (s *Server) handleWeighted(w http.ResponseWriter, r *http.Request) {
	s.handlePrice(w, r, "/v1/price/weighted", s.svc.WeightedPrice)
}

type priceFunc func(ctx context.Context, symbol string) (*big.Int, error)

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request, endpoint string, compute priceFunc) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(endpoint, status, time.Since(start))
	}()

	pair := r.URL.Query().Get("pair")
	if pair == "" {
		status = "400"
		s.sendError(w, http.StatusBadRequest, "pair query parameter is required")
		return
	}

	result, err := compute(r.Context(), pair)
	if err != nil {
		status = s.sendQueryError(w, err)
		return
	}

	decimals := s.svc.CanonicalDecimals()
	s.sendJSON(w, priceResponse{
		Pair:  pair,
		Price: price.Render(result, decimals),
		Raw:   result.String(),
	})
}

// handleAggregated handles /v1/price/aggregated.
func (s *Server) handleAggregated(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/price/aggregated", status, time.Since(start))
	}()

	pair := r.URL.Query().Get("pair")
	if pair == "" {
		status = "400"
		s.sendError(w, http.StatusBadRequest, "pair query parameter is required")
		return
	}

	result, err := s.svc.AggregatedPrice(r.Context(), pair)
	if err != nil {
		status = s.sendQueryError(w, err)
		return
	}

	decimals := s.svc.CanonicalDecimals()
	s.sendJSON(w, aggregatedResponse{
		Pair:            pair,
		Median:          price.Render(result.Median, decimals),
		MedianRaw:       result.Median.String(),
		WeightedMean:    price.Render(result.WeightedMean, decimals),
		WeightedMeanRaw: result.WeightedMean.String(),
	})
}

// handleAllPrices handles /v1/prices.
func (s *Server) handleAllPrices(w http.ResponseWriter, r *http.Request) {
	s.handleViews(w, r, "/v1/prices", false)
}

// handleAllPricesStatus handles /v1/prices/status.
func (s *Server) handleAllPricesStatus(w http.ResponseWriter, r *http.Request) {
	s.handleViews(w, r, "/v1/prices/status", true)
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request, endpoint string, withStatus bool) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(endpoint, status, time.Since(start))
	}()

	pair := r.URL.Query().Get("pair")
	if pair == "" {
		status = "400"
		s.sendError(w, http.StatusBadRequest, "pair query parameter is required")
		return
	}

	var views []aggregate.SourcePrice
	var err error
	if withStatus {
		views, err = s.svc.AllPricesWithStatus(r.Context(), pair)
	} else {
		views, err = s.svc.AllPrices(r.Context(), pair)
	}
	if err != nil {
		status = s.sendQueryError(w, err)
		return
	}

	decimals := s.svc.CanonicalDecimals()
	out := make([]sourcePriceResponse, 0, len(views))
	for _, view := range views {
		entry := sourcePriceResponse{
			Handle:      view.Handle,
			Type:        string(view.Type),
			Description: view.Description,
			Price:       price.Render(view.Price, decimals),
			Raw:         view.Price.String(),
		}
		if !view.Timestamp.IsZero() {
			entry.Timestamp = view.Timestamp.UTC().Format(time.RFC3339)
		}
		if withStatus && view.DisputeCapable {
			disputed := view.Disputed
			entry.Disputed = &disputed
		}
		out = append(out, entry)
	}
	s.sendJSON(w, out)
}

// sendQueryError maps a query error to its HTTP status and writes the
// response. NotFound and InvalidConfig indicate caller misuse; the rest
// are transient.
func (s *Server) sendQueryError(w http.ResponseWriter, err error) string {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
		return "404"
	case errors.Is(err, registry.ErrInvalidConfig):
		s.sendError(w, http.StatusBadRequest, err.Error())
		return "400"
	case errors.Is(err, aggregate.ErrAssetPairInactive):
		s.sendError(w, http.StatusConflict, err.Error())
		return "409"
	default:
		// InsufficientResponses, ZeroWeight: retry, or check source health.
		s.sendError(w, http.StatusServiceUnavailable, err.Error())
		return "503"
	}
}

// sendError sends a JSON error response.
func (s *Server) sendError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		s.logger.Error("Failed to encode JSON error response", "error", err)
	}
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
