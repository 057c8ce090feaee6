package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bepay-gateway/config"
	"bepay-gateway/internal/adapter/events"
	httpHandler "bepay-gateway/internal/adapter/http/handler"
	"bepay-gateway/internal/adapter/http/middleware"
	"bepay-gateway/internal/adapter/metrics"
	"bepay-gateway/internal/adapter/storage/memory"
	mongoStorage "bepay-gateway/internal/adapter/storage/mongodb"
	pgStorage "bepay-gateway/internal/adapter/storage/postgres"
	redisStorage "bepay-gateway/internal/adapter/storage/redis"
	"bepay-gateway/internal/core/ports"
	"bepay-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("ledger", cfg.Ledger.Driver).
		Str("version", Version).
		Msg("Starting BePay Payment Gateway")

	ctx := context.Background()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	protector, err := service.NewCardDataProtector(cfg.Security.CardEncryptionKey)
	if err != nil {
		return fmt.Errorf("card data protector: %w", err)
	}
	if cfg.Security.CardEncryptionKey == "" {
		log.Warn().Msg("card_encryption_key not set, card data is stored in plaintext")
	}

	// Ledger
	var (
		ledger    ports.Ledger
		auditRepo ports.AuditRepository
		checkers  []ports.HealthChecker
	)
	switch cfg.Ledger.Driver {
	case config.LedgerPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool, log); err != nil {
				return err
			}
		}
		ledger = pgStorage.NewLedgerRepo(pool, protector)
		auditRepo = pgStorage.NewAuditRepository(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))

	case config.LedgerMongo:
		client, err := mongoStorage.Connect(ctx, cfg.Mongo, log)
		if err != nil {
			return fmt.Errorf("connecting to mongo: %w", err)
		}
		closers = append(closers, func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		})
		repo := mongoStorage.NewLedgerRepo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection), protector)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		ledger = repo
		checkers = append(checkers, mongoStorage.NewHealthCheck(client))

	default:
		mem := memory.NewLedger()
		ledger = mem
		checkers = append(checkers, mem)
		log.Warn().Msg("using in-memory ledger, transactions are lost on restart")
	}

	// Redis: refund lock and rate limit counters
	var (
		locker    ports.RefundLocker = service.NewKeyedMutex()
		rateStore middleware.Limiter
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		locker = redisStorage.NewRefundLocker(rdb, log)
		if cfg.RateLimit.Enabled {
			rateStore = redisStorage.NewRateLimitStore(rdb)
		}
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	} else if cfg.RateLimit.Enabled {
		log.Warn().Msg("ratelimit.enabled requires redis, rate limiting is off")
	}

	// Events
	var publisher ports.EventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka, log)
		closers = append(closers, func() {
			if err := kp.Close(); err != nil {
				log.Warn().Err(err).Msg("closing kafka writer")
			}
		})
		publisher = kp
	}

	collector := metrics.New()

	minAmount, maxAmount, err := cfg.Payment.Bounds()
	if err != nil {
		return err
	}
	engine := service.NewEngine(service.EngineConfig{
		MinAmount:  minAmount,
		MaxAmount:  maxAmount,
		Currencies: cfg.Payment.Currencies(),
	}, service.EngineDeps{
		Ledger:    ledger,
		Locker:    locker,
		Publisher: publisher,
		Metrics:   collector,
	}, log)

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Engine:           engine,
		APIKeyVerifier:   service.NewAPIKeyVerifier(cfg.Security.APIKey, cfg.Security.APIKeyHash, log),
		RequireAPIKey:    cfg.Security.RequireAPIKey,
		RateLimitStore:   rateStore,
		RateLimitRules:   middleware.RateLimitRules(cfg.RateLimit),
		HealthCheckers:   checkers,
		AuditSvc:         service.NewAuditService(auditRepo, log),
		Metrics:          collector,
		ListLimitDefault: cfg.Payment.ListLimitDefault,
		ListLimitMax:     cfg.Payment.ListLimitMax,
		Version:          Version,
		Logger:           log,
	})

	return serveHTTP(cfg.Server.Addr(), router, log)
}

// serveHTTP runs the server until SIGINT/SIGTERM, then drains in-flight requests.
func serveHTTP(addr string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}
