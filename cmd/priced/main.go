package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tc.com/price-aggregator/pkg/config"
	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/metrics"
	"tc.com/price-aggregator/pkg/oracle/aggregate"
	"tc.com/price-aggregator/pkg/oracle/feed"
	"tc.com/price-aggregator/pkg/oracle/price"
	"tc.com/price-aggregator/pkg/oracle/registry"
	"tc.com/price-aggregator/pkg/server/api"
	"tc.com/price-aggregator/pkg/version"

	// Import httpfeed to register the feed factories.
	_ "tc.com/price-aggregator/pkg/oracle/feed/httpfeed"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("priced version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Starting priced", "version", version.Version)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Build the registries and the aggregation service
	admin := cfg.Oracle.Admin
	auth := registry.NewSingleAdmin(admin)
	sources := registry.NewSourceRegistry(auth, logger)
	pairs := registry.NewPairRegistry(auth, sources, logger)

	if err := bootstrapSources(cfg, sources, admin); err != nil {
		logger.Fatal("Failed to register sources", "error", err)
	}
	if err := bootstrapPairs(cfg, pairs, admin); err != nil {
		logger.Fatal("Failed to register pairs", "error", err)
	}

	svc := aggregate.NewService(sources, pairs, auth, logger, aggregate.Options{
		CanonicalDecimals: uint8(cfg.Oracle.CanonicalDecimals),
		MinimumResponses:  cfg.Oracle.MinimumResponses,
		DefaultHeartbeat:  cfg.Oracle.DefaultHeartbeat.ToDuration(),
	})

	// Start servers
	httpServer := api.NewServer(cfg.Server.HTTP.Addr, svc, logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, svc, pairs,
			cfg.Server.RefreshInterval.ToDuration(), logger)
		go func() {
			if err := wsServer.Start(context.Background()); err != nil {
				logger.Error("WebSocket server failed", "error", err)
			}
		}()
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if wsServer != nil {
		wsServer.Stop()
	}
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}

// bootstrapSources creates the configured feeds and registers them.
func bootstrapSources(cfg *config.Config, sources *registry.SourceRegistry, admin string) error {
	for _, sc := range cfg.Sources {
		feedType := feed.Type(strings.ToLower(sc.Type))

		feedCfg := make(map[string]interface{}, len(sc.Config)+3)
		for k, v := range sc.Config {
			feedCfg[k] = v
		}
		// Registration-level settings the factories also need.
		if _, ok := feedCfg["heartbeat"]; !ok && sc.Heartbeat.ToDuration() > 0 {
			feedCfg["heartbeat"] = int(sc.Heartbeat.ToDuration() / time.Second)
		}
		if _, ok := feedCfg["decimals"]; !ok {
			feedCfg["decimals"] = sc.Decimals
		}

		f, err := feed.Create(feedType, feedCfg)
		if err != nil {
			return fmt.Errorf("source %s: %w", sc.Handle, err)
		}

		weight, err := price.ParseWeight(sc.Weight)
		if err != nil {
			return fmt.Errorf("source %s: %w", sc.Handle, err)
		}

		// A zero heartbeat stays zero so the service-level staleness
		// threshold keeps applying, including later admin changes.
		if err := sources.AddSource(admin, registry.Source{
			Handle:      sc.Handle,
			Type:        feedType,
			Weight:      weight,
			Heartbeat:   sc.Heartbeat.ToDuration(),
			Decimals:    uint8(sc.Decimals),
			Description: sc.Description,
			Feed:        f,
		}); err != nil {
			return fmt.Errorf("source %s: %w", sc.Handle, err)
		}
	}
	return nil
}

// bootstrapPairs registers the configured asset pairs.
func bootstrapPairs(cfg *config.Config, pairs *registry.PairRegistry, admin string) error {
	for _, pc := range cfg.Pairs {
		if err := pairs.AddPair(admin, registry.Pair{
			Symbol:  pc.Symbol,
			Base:    pc.Base,
			Quote:   pc.Quote,
			Sources: pc.Sources,
		}); err != nil {
			return fmt.Errorf("pair %s: %w", pc.Symbol, err)
		}
		if !pc.IsActive() {
			if err := pairs.SetActive(admin, pc.Symbol, false); err != nil {
				return fmt.Errorf("pair %s: %w", pc.Symbol, err)
			}
		}
	}
	return nil
}
