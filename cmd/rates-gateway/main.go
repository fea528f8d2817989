package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/rates-gateway/internal/aggregator"
	"github.com/Checker-Finance/rates-gateway/internal/api"
	"github.com/Checker-Finance/rates-gateway/internal/fx"
	"github.com/Checker-Finance/rates-gateway/internal/publisher"
	"github.com/Checker-Finance/rates-gateway/internal/rate"
	"github.com/Checker-Finance/rates-gateway/internal/store"
	"github.com/Checker-Finance/rates-gateway/internal/venues"
	"github.com/Checker-Finance/rates-gateway/internal/ws"
	"github.com/Checker-Finance/rates-gateway/pkg/config"
	"github.com/Checker-Finance/rates-gateway/pkg/logger"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [rates-gateway]...")

	// --- Store (Redis rate cache) ---
	st, err := store.New(cfg.RedisURL, cfg.CacheTTL, logger.L())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- NATS (optional) ---
	var nc *nats.Conn
	var pub *publisher.Publisher
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err = publisher.New(nc, cfg.OutboundSubject, cfg.ServiceName, logger.L())
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
	} else {
		logg.Warn("NATS_URL not configured; event publishing disabled")
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 10,
		Burst:             20,
	})

	// --- Providers ---
	fxFetcher := fx.NewFetcher(logger.L(), st, cfg.KrakenAPIURL)
	newton := venues.NewNewtonClient(logger.L(), st, rateMgr, cfg.NewtonAPIURL, model.SupportedAssets)
	binance := venues.NewBinanceClient(logger.L(), st, rateMgr, cfg.BinanceAPIURL)
	kraken := venues.NewKrakenClient(logger.L(), st, rateMgr, cfg.KrakenAPIURL)

	// --- Aggregator ---
	agg := aggregator.New(logger.L(), fxFetcher, newton, binance, kraken, model.SupportedAssets)

	// --- WebSocket hub and handler ---
	hub := ws.NewHub(logger.L())
	wsHandler := ws.NewHandler(logger.L(), hub, agg, len(model.SupportedAssets))

	// --- Ops HTTP server (fiber) ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	ratesHandler := api.NewRatesHandler(logger.L(), agg)
	api.RegisterRoutes(app, nc, st, ratesHandler)

	go func() {
		logg.Infof("ops API listening on :%d", cfg.OpsPort)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.OpsPort)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- WebSocket server ---
	wsServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.WSHost, cfg.WSPort),
		Handler:     wsHandler,
		ReadTimeout: 0, // connections are long-lived
	}
	go func() {
		logg.Infof("WebSocket server listening on %s%s", wsServer.Addr, ws.Path)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatalw("ws.listen_failed", "error", err)
		}
	}()

	// --- Recurring update loop ---
	updater := ws.NewUpdater(logger.L(), agg, hub, pub, cfg.UpdateInterval)
	updater.Start(ctx)

	logg.Infow("[rates-gateway] running",
		"env", cfg.Env,
		"assets", len(model.SupportedAssets),
		"update_interval", cfg.UpdateInterval,
		"cache_ttl", cfg.CacheTTL)

	<-ctx.Done()
	logg.Info("shutting down [rates-gateway]...")

	updater.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logg.Warnw("ws.shutdown_failed", "error", err)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
	logger.Sync()
}
