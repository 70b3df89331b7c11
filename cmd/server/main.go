// Package main runs the unified memepad engine:
// - Acquisition: launch feed, rule matching, wallet rotation, buy dispatch
// - Tracking: position snapshots, trade subscriptions, tick archiving
// - Broadcast: WebSocket fan-out of balance and token activity updates
// - Observability: health, status and Prometheus metrics endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/broadcast"
	"memepad-engine/internal/config"
	"memepad-engine/internal/crypt"
	"memepad-engine/internal/dispatch"
	"memepad-engine/internal/domain"
	"memepad-engine/internal/engine"
	"memepad-engine/internal/feed"
	"memepad-engine/internal/logger"
	"memepad-engine/internal/market"
	"memepad-engine/internal/observability"
	"memepad-engine/internal/solana"
	"memepad-engine/internal/storage"
	chstore "memepad-engine/internal/storage/clickhouse"
	"memepad-engine/internal/storage/memory"
	"memepad-engine/internal/storage/migrations"
	pgstore "memepad-engine/internal/storage/postgres"
	"memepad-engine/internal/tracker"
	"memepad-engine/internal/wallets"
	"memepad-engine/internal/walletsvc"
)

// shutdownTimeout bounds graceful teardown after the first signal.
const shutdownTimeout = 30 * time.Second

// allStores holds all storage implementations.
type allStores struct {
	memePads storage.MemePadStore
	wallets  storage.WalletStore
	groups   storage.GroupStore
	history  storage.HistoryStore
	ticks    storage.TradeTickStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment for the knobs an operator flips most.
	listenAddr := flag.String("listen-addr", cfg.ListenAddr, "HTTP listen address (health, metrics, ws)")
	useMemory := flag.Bool("use-memory", cfg.PostgresDSN == "", "Use in-memory storage instead of PostgreSQL")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	logger.Setup(*logLevel)
	log := logger.Component("server")

	if !*useMemory && cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("")

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		log.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// A restart never resumes stale feed subscriptions.
	if err := stores.memePads.DeactivateAll(ctx, domain.ChainSolana); err != nil {
		log.Fatalf("Failed to deactivate memepads: %v", err)
	}

	cipher := crypt.New(cfg.Passphrase)
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithMetrics(metrics))
	coins := market.NewClient(cfg.FrontendAPIURL)

	dispatcher := dispatch.NewDispatcher(
		cfg.TradeRelayURL, cfg.BundleURL, cfg.TipFloorURL,
		cipher, logger.Component("dispatch"),
		dispatch.WithMetrics(metrics),
	)

	feedClient := feed.NewClient(cfg.FeedEndpoint, nil, logger.Component("feed"), feed.WithMetrics(metrics))
	hub := broadcast.NewHub(logger.Component("broadcast"), broadcast.WithMetrics(metrics))

	allocator := wallets.NewAllocator(stores.wallets, domain.ChainSolana)

	eng := engine.NewEngine(
		domain.ChainSolana,
		stores.memePads, stores.wallets, stores.history,
		allocator, dispatcher, feedClient, rpc,
		metrics, logger.Component("engine"),
		engine.Options{EnforceWalletCap: cfg.EnforceWalletCap},
	)

	trk := tracker.NewTracker(
		domain.ChainSolana,
		stores.memePads, stores.ticks,
		rpc, coins, feedClient, hub,
		metrics, logger.Component("tracker"),
	)

	// Every landed buy starts or refreshes tracking for its memepad.
	eng.SetPositionListener(func(memePadName string) {
		trackCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := trk.StartTracking(trackCtx, memePadName); err != nil {
			trk.RefreshPositions(trackCtx, memePadName)
		}
	})

	registry := engine.NewRegistry()
	registry.Register(domain.ChainSolana, engine.NewSolanaService(eng, stores.memePads, stores.groups))
	registry.Register(domain.ChainBSC, engine.NewUnsupportedService(domain.ChainBSC))

	walletSvc := walletsvc.NewService(
		domain.ChainSolana,
		stores.wallets, stores.groups,
		cipher, rpc, hub, logger.Component("wallets"),
		walletsvc.WithPollInterval(cfg.BalancePollInterval),
	)
	defer walletSvc.Close()

	if err := feedClient.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to launch feed: %v", err)
	}
	defer feedClient.Close()
	log.WithField("endpoint", cfg.FeedEndpoint).Info("Connected to launch feed")

	startBalanceTracking(ctx, walletSvc, log)

	srv := &http.Server{
		Addr:    *listenAddr,
		Handler: buildMux(hub, registry, time.Now()),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", *listenAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		log.WithError(err).Error("HTTP server failed")
	}
	cancel()

	// A second signal forces exit.
	go func() {
		<-sigCh
		log.Warn("Forcing immediate shutdown")
		os.Exit(1)
	}()

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}

	log.Info("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			memePads: memory.NewMemePadStore(),
			wallets:  memory.NewWalletStore(),
			groups:   memory.NewGroupStore(),
			history:  memory.NewHistoryStore(),
			ticks:    memory.NewTradeTickStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &allStores{
		memePads: pgstore.NewMemePadStore(pool),
		wallets:  pgstore.NewWalletStore(pool),
		groups:   pgstore.NewGroupStore(pool),
		history:  pgstore.NewHistoryStore(pool),
	}

	// The tick archive is optional; without ClickHouse ticks stay in memory.
	var chConn *chstore.Conn
	if cfg.ClickHouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.ticks = chstore.NewTradeTickStore(chConn)
	} else {
		stores.ticks = memory.NewTradeTickStore()
	}

	cleanup := func() {
		if chConn != nil {
			chConn.Close()
		}
		pool.Close()
	}

	return stores, cleanup, nil
}

// startBalanceTracking begins periodic balance broadcasting for every
// existing wallet group.
func startBalanceTracking(ctx context.Context, svc *walletsvc.Service, log *logrus.Entry) {
	groups, err := svc.ListGroups(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not list wallet groups for balance tracking")
		return
	}
	for _, group := range groups {
		if err := svc.StartTrackingBalances(group); err != nil {
			log.WithError(err).WithField("group", group).Warn("Balance tracking not started")
		}
	}
}

// buildMux assembles the HTTP surface: health, status, metrics and the
// broadcast WebSocket endpoint.
func buildMux(hub *broadcast.Hub, registry *engine.Registry, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/ws", hub.Handler())
	mux.HandleFunc("/status", statusHandler(hub, registry, started))

	return mux
}

// statusResponse is the JSON response for the /status endpoint.
type statusResponse struct {
	Status           string              `json:"status"`
	Uptime           string              `json:"uptime"`
	Chains           []string            `json:"chains"`
	MemePads         map[string][]string `json:"memePads"`
	ConnectedClients int                 `json:"connectedClients"`
}

// statusHandler reports uptime, registered chains and their memepads.
func statusHandler(hub *broadcast.Hub, registry *engine.Registry, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Status:           "running",
			Uptime:           time.Since(started).String(),
			MemePads:         make(map[string][]string),
			ConnectedClients: hub.ClientCount(),
		}

		for _, chain := range registry.Chains() {
			resp.Chains = append(resp.Chains, string(chain))

			svc, err := registry.Get(chain)
			if err != nil {
				continue
			}
			names, err := svc.ListMemePadNames(r.Context())
			if err != nil {
				// Stubbed chains list nothing.
				continue
			}
			resp.MemePads[string(chain)] = names
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
