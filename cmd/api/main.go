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

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/ledger-backend/internal/api"
	"github.com/baharkarakas/ledger-backend/internal/auth"
	"github.com/baharkarakas/ledger-backend/internal/config"
	"github.com/baharkarakas/ledger-backend/internal/db"
	"github.com/baharkarakas/ledger-backend/internal/events"
	"github.com/baharkarakas/ledger-backend/internal/logger"
	"github.com/baharkarakas/ledger-backend/internal/metrics"
	"github.com/baharkarakas/ledger-backend/internal/middleware"
	"github.com/baharkarakas/ledger-backend/internal/reconcile"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
	"github.com/baharkarakas/ledger-backend/internal/repository/locking"
	"github.com/baharkarakas/ledger-backend/internal/repository/memory"
	"github.com/baharkarakas/ledger-backend/internal/repository/postgres"
	"github.com/baharkarakas/ledger-backend/internal/services"
	"github.com/baharkarakas/ledger-backend/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, applier, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		log.Error("storage", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	wp := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize)
	defer wp.Stop()

	metrics.Init()
	engine := services.NewBalanceEngine(services.EngineDeps{
		Repos:     repos,
		Applier:   applier,
		Publisher: publisher,
		Pool:      wp,
		Logger:    log,
	})

	sweeper := reconcile.NewSweeper(repos.Transactions, applier, reconcile.Config{
		Schedule: cfg.ReconcileSchedule,
		MaxAge:   cfg.PendingMaxAge,
		Batch:    cfg.ReconcileBatch,
	}, log)
	if err := sweeper.Start(); err != nil {
		log.Error("reconcile schedule", "err", err)
		os.Exit(1)
	}

	deps := api.RouterDeps{
		Cfg:    cfg,
		Ledger: engine,
		TM:     auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis url", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		deps.Limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPrefix, cfg.RateRPS, cfg.RateLimitWindow)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort,
			"storage", cfg.StorageDriver, "apply_mode", applier.Mode(), "events", cfg.EventsDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	select {
	case <-sweeper.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("reconcile sweep still running at shutdown")
	}
}

func openStorage(ctx context.Context, cfg config.Config) (repo.Repositories, repo.Applier, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		r := memory.NewStore().Repositories()
		return r, locking.NewApplier(r, cfg.LockTimeout), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return repo.Repositories{}, nil, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return repo.Repositories{}, nil, nil, err
		}
	}

	r := postgres.NewRepositories(pool)
	var applier repo.Applier
	switch cfg.ApplyMode {
	case config.ApplyLocking:
		applier = locking.NewApplier(r, cfg.LockTimeout)
	default:
		applier = postgres.NewTxApplier(pool, postgres.RetryPolicy{
			MaxAttempts: cfg.CommitMaxAttempts,
			BaseDelay:   cfg.CommitBaseDelay,
			MaxDelay:    cfg.CommitMaxDelay,
		})
	}
	return r, applier, pool.Close, nil
}

// newPublisher falls back to a no-op publisher when the broker cannot be
// reached at startup; balances never depend on event delivery.
func newPublisher(cfg config.Config, log *slog.Logger) events.Publisher {
	switch cfg.EventsDriver {
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.Brokers(), cfg.KafkaTopic)
	case config.EventsRabbitMQ:
		p, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", "err", err)
			return events.NopPublisher{}
		}
		return p
	default:
		return events.NopPublisher{}
	}
}
