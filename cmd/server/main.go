// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"greenhop/internal/credential"
	"greenhop/internal/events"
	"greenhop/internal/ledger"
	"greenhop/internal/platform/config"
	"greenhop/internal/platform/database"
	"greenhop/internal/platform/health"
	"greenhop/internal/platform/kafka/producer"
	"greenhop/internal/platform/logger"
	"greenhop/internal/platform/redis"
	"greenhop/internal/platform/tracer"
	"greenhop/internal/reward"
	tokenhandler "greenhop/internal/token"
	httptransport "greenhop/internal/transport/http"
	triphandler "greenhop/internal/trip/handler"
	tripmetrics "greenhop/internal/trip/metrics"
	tripservice "greenhop/internal/trip/service"
	"greenhop/internal/trip/stats"
	"greenhop/internal/trip/store"
	"greenhop/internal/wallet"
	id "greenhop/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	log.Info("initializing greenhop",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	treasury, err := id.ParseAccountID(cfg.TreasuryAccount)
	if err != nil {
		return err
	}

	healthHandler := health.New(cfg.Environment)

	// Persistence: postgres when configured, in-memory otherwise.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	var tripStore store.Store
	if pool != nil {
		defer pool.Close()
		tripStore = store.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", healthCheck(pool.Health))
		log.Info("using postgres trip store")
	} else {
		tripStore = store.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory trip store")
	}

	// Stats cache.
	redisCfg := redis.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	cache, err := redis.New(redisCfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		healthHandler.RegisterCheck("redis", healthCheck(cache.Health))
	}

	// Trip event stream.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return err
		}
		defer prod.Close()
		publisher = events.NewKafka(prod, cfg.EventsTopic, events.WithLogger(log))
		healthHandler.RegisterCheck("kafka", healthCheck(prod.Health))
		log.Info("publishing trip events", "topic", cfg.EventsTopic)
	}
	defer publisher.Close()

	// External collaborators: HTTP gateways when configured, local
	// implementations otherwise.
	var issuer credential.Issuer
	if cfg.CredentialAPIURL != "" {
		issuer = credential.NewHTTPClient(cfg.CredentialAPIURL, cfg.CredentialAPIKey, cfg.PolicyID, cfg.ExternalCallTimeout)
	} else {
		issuer = credential.NewInMemory(cfg.PolicyID)
		log.Warn("CREDENTIAL_API_URL not set, issuing credentials locally")
	}

	var ledgerSvc ledger.Service
	if cfg.LedgerAPIURL != "" {
		ledgerSvc = ledger.NewHTTPClient(cfg.LedgerAPIURL, cfg.LedgerAPIKey, cfg.TokenID, cfg.ExternalCallTimeout)
	} else {
		ledgerSvc = ledger.NewInMemory(cfg.TokenID, treasury)
		log.Warn("LEDGER_API_URL not set, using in-memory ledger")
	}

	metrics := tripmetrics.New()
	traces := tracer.NewOTel()

	rewards := reward.New(issuer, ledgerSvc,
		reward.WithLogger(log),
		reward.WithTracer(traces),
		reward.WithMetrics(metrics),
		reward.WithPublisher(publisher),
	)

	statsOpts := []stats.Option{stats.WithLogger(log), stats.WithMetrics(metrics)}
	if cache != nil {
		statsOpts = append(statsOpts, stats.WithCache(cache, cfg.StatsCacheTTL))
	}
	statsSvc := stats.New(tripStore, statsOpts...)

	pipeline := tripservice.New(tripStore, rewards,
		tripservice.WithLogger(log),
		tripservice.WithTracer(traces),
		tripservice.WithMetrics(metrics),
		tripservice.WithPublisher(publisher),
		tripservice.WithStatsInvalidator(statsSvc),
	)

	walletSvc := wallet.New(
		wallet.NewInMemorySessionStore(),
		[]byte(cfg.JWTSigningKey),
		cfg.SessionTTL,
		wallet.WithLogger(log),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Trips:  triphandler.New(pipeline, statsSvc, log),
		Tokens: tokenhandler.New(ledgerSvc, log),
		Wallet: wallet.NewHandler(walletSvc, log),
		Health: healthHandler,
		Logger: log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// healthCheck adapts a context-aware probe to the health handler's CheckFunc.
func healthCheck(probe func(ctx context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return probe(ctx)
	}
}
