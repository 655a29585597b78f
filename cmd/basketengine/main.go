package main

import (
	"BasketEngine/internal/config"
	"BasketEngine/internal/index"
	"BasketEngine/internal/invalidate"
	"BasketEngine/internal/observability"
	"BasketEngine/internal/pricefeed"
	"BasketEngine/internal/refresh"
	"BasketEngine/internal/server"
	"BasketEngine/internal/valuation"
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: load config: %v", err)
	}
	if len(cfg.Watches) == 0 {
		log.Fatalf("FATAL: BASKET_WATCH is empty, nothing to refresh")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Postgres (indexer mirror, read only) ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Fatalf("FATAL: postgres open: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("FATAL: postgres ping: %v", err)
	}
	log.Println("INFO: Postgres connected")

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Invalidation bus + optional NATS bridge ---
	bus := invalidate.NewBus()

	var publisher *invalidate.Publisher
	var relay *invalidate.Relay
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatalf("FATAL: nats connect: %v", err)
		}
		defer nc.Close()
		log.Println("INFO: NATS connected")

		publisher = invalidate.NewPublisher(nc, observability.NewLogger("invalidate-publisher"))
		relay = invalidate.NewRelay(nc, bus, observability.NewLogger("invalidate-relay"))
	} else {
		log.Println("INFO: BASKET_NATS_URL empty, invalidation stays local")
	}

	// --- Price feed ---
	var prices pricefeed.Source
	var feed *pricefeed.Feed
	if cfg.PriceFeedURL != "" {
		feed = pricefeed.New(cfg.PriceFeedURL, observability.NewLogger("pricefeed"), metrics)
		prices = feed
	} else {
		log.Println("INFO: BASKET_PRICE_FEED_URL empty, using index prices only")
		prices = pricefeed.Static{}
	}

	// --- Engine wiring ---
	engine := valuation.NewEngine(valuation.FeeConfig{
		OpenFeeBps:  cfg.OpenFeeBps,
		CloseFeeBps: cfg.CloseFeeBps,
	})
	indexClient := index.NewClient(db, metrics)

	targets := make([]refresh.Target, 0, len(cfg.Watches))
	for _, w := range cfg.Watches {
		targets = append(targets, refresh.Target{Basket: w.Basket, Owner: w.Owner})
	}

	worker := refresh.NewWorker(
		indexClient,
		prices,
		bus,
		engine,
		targets,
		observability.NewLogger("refresh"),
		refresh.Options{
			Interval: cfg.RefreshInterval,
			Metrics:  metrics,
			Health:   healthChecker,
		},
	)

	httpServer := server.New(cfg.HTTPAddr, server.Deps{
		Worker:    worker,
		Bus:       bus,
		Publisher: publisher,
		Health:    healthChecker,
		Metrics:   metrics,
		Logger:    observability.NewLogger("http"),
	})

	// --- Start goroutines ---
	errChan := make(chan error, 10)

	// 1. Refresh worker
	go func() {
		errChan <- worker.Run(ctx)
	}()

	// 2. Price feed reader
	if feed != nil {
		go func() {
			errChan <- feed.Run(ctx)
		}()
	}

	// 3. NATS invalidation relay
	if relay != nil {
		go func() {
			errChan <- relay.Run(ctx)
		}()
	}

	// 4. HTTP server
	go func() {
		errChan <- httpServer.Run(ctx)
	}()

	// 5. Prometheus metrics server
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		log.Printf("INFO: Metrics server listening on %s/metrics", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	log.Printf("INFO: BasketEngine started (watches=%d, http=%s, metrics=%s, interval=%s)",
		len(targets), cfg.HTTPAddr, cfg.MetricsAddr, cfg.RefreshInterval)

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		log.Printf("INFO: received signal %s, shutting down...", sig)
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			log.Printf("ERROR: goroutine failed: %v, shutting down...", err)
		}
	}

	cancel()

	// Give the servers a moment to drain.
	time.Sleep(500 * time.Millisecond)
	log.Println("INFO: shutdown complete")
}
