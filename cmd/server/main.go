// Package main is the entry point for the ledger API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walletledger/internal/config"
	"walletledger/internal/events"
	"walletledger/internal/handlers"
	"walletledger/internal/logger"
	"walletledger/internal/metrics"
	"walletledger/internal/ratelimit"
	"walletledger/internal/repositories"
	"walletledger/internal/repositories/cache"
	"walletledger/internal/routes"
	"walletledger/internal/services/audit"
	"walletledger/internal/services/user"
	"walletledger/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
)

type publisher interface {
	wallet.EventPublisher
	Close() error
}

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, config.IsProduction())
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := repositories.NewPostgres(cfg.Database, logger.Component(log, "database"))
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer repositories.Close(db)

	replica, err := repositories.NewReadReplica(cfg.Database, db, logger.Component(log, "database"))
	if err != nil {
		log.WithError(err).Fatal("failed to open read replica")
	}
	if replica != db {
		defer repositories.Close(replica)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Redis is optional: without it owner lookups go straight to the database.
	var accountCache *cache.CacheService
	redisClient := cache.NewRedisClient(cfg.Redis)
	if err := cache.Ping(ctx, redisClient); err != nil {
		log.WithError(err).Warn("redis unavailable, running without owner cache")
		_ = redisClient.Close()
	} else {
		accountCache = cache.NewCacheService(redisClient, cfg.Redis.TTL)
		defer accountCache.Close()
		health["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var ledgerEvents publisher = events.Noop{}
	if cfg.Kafka.Enabled() {
		producer, err := events.Dial(cfg.Kafka, logger.Component(log, "events"))
		if err != nil {
			log.WithError(err).Fatal("failed to connect to kafka")
		}
		ledgerEvents = producer
		log.WithField("topic", cfg.Kafka.LedgerTopic).Info("publishing ledger events")
	}
	defer ledgerEvents.Close()

	limiter := ratelimit.New(ratelimit.WithLogger(logger.Component(log, "ratelimit")))
	go limiter.Run(ctx, time.Minute)

	collector := metrics.New()
	store := repositories.NewLedgerStore(db)

	walletOpts := []wallet.Option{
		wallet.WithRateLimiter(limiter),
		wallet.WithEventPublisher(ledgerEvents),
		wallet.WithMetrics(collector),
		wallet.WithLogger(logger.Component(log, "wallet")),
	}
	var ownerCache user.OwnerCache
	if accountCache != nil {
		walletOpts = append(walletOpts, wallet.WithCache(accountCache))
		ownerCache = accountCache
	}

	walletService := wallet.NewService(store, wallet.Config{
		TransferLimit:  cfg.RateLimit.TransferLimit,
		TransferWindow: cfg.RateLimit.TransferWindow,
		MaxAttempts:    cfg.Ledger.MaxAttempts,
		RetryBackoff:   cfg.Ledger.RetryBackoff,
	}, walletOpts...)

	userService := user.NewService(store, limiter, ownerCache, user.Config{
		AuthLimit:  cfg.RateLimit.AuthLimit,
		AuthWindow: cfg.RateLimit.AuthWindow,
	}, logger.Component(log, "user"))

	auditService := audit.NewService(repositories.NewTransactionRepository(replica), logger.Component(log, "audit"))

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET,POST,PATCH,DELETE",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Out,
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Config:  cfg,
		Users:   userService,
		Wallets: walletService,
		Audit:   auditService,
		Metrics: collector,
		Health:  health,
		Log:     log,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Error("server stopped")
	}
}
