/**
 * @description
 * This is the main entry point for the renewal service. It is responsible for
 * initializing all components: configuration, the storage backend (PostgreSQL
 * with an in-memory fallback), the optional Redis rate limiter, the optional
 * RabbitMQ event producer, the core application service, and the HTTP server.
 * It wires everything together and starts the service.
 *
 * Storage selection happens once at startup: if DATABASE_URL is unset, or the
 * connection probe fails within its timeout, the service runs on the in-memory
 * store for its whole lifetime and says so loudly in the logs.
 *
 * @dependencies
 * - log/slog, net/http: Standard Go libraries for logging and the HTTP server.
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pool.
 * - github.com/redis/go-redis/v9: Redis client for rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/rabbitmq: Activity event publishing.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Shreyask21-dev/recurr/internal/api"
	"github.com/Shreyask21-dev/recurr/internal/app"
	"github.com/Shreyask21-dev/recurr/internal/config"
	"github.com/Shreyask21-dev/recurr/internal/store"
	"github.com/Shreyask21-dev/recurr/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Info("starting renewal service", "port", cfg.ServerPort)

	// Select the storage backend. PostgreSQL when reachable, otherwise the
	// in-memory store for the lifetime of the process.
	st, dbpool := selectStore(cfg, logger)
	if dbpool != nil {
		defer dbpool.Close()
	}

	// Initialize the RabbitMQ producer to publish activity events.
	var producer rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Warn("rabbitmq url missing; activity events disabled", "env", "RABBITMQ_URL")
		producer = &rabbitmq.EventProducerFallback{}
	} else if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.ActivityEventExchange); err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer p.Close()
		logger.Info("rabbitmq producer connected", "exchange", cfg.ActivityEventExchange)
		producer = p
	}

	// Initialize the Redis-backed write rate limiter if configured.
	var writeLimiter api.WriteRateLimiter
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Warn("redis url missing; write rate limiting disabled", "env", "REDIS_URL")
	} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
		logger.Warn("redis url parse failed; write rate limiting disabled", "error", parseErr)
	} else {
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancelPing()
		if pingErr != nil {
			logger.Warn("redis ping failed; write rate limiting disabled", "error", pingErr)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			logger.Info("redis connected")
			writeLimiter = app.NewRedisWriteRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
		}
	}

	// Initialize the core application service and the HTTP layer.
	service := app.NewService(st, producer, logger)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler, api.RouterOptions{
		AuthSecret:       cfg.AuthTokenSecret,
		DefaultUserID:    cfg.DefaultUserID,
		WriteLimiter:     writeLimiter,
		WriteLimitPerMin: cfg.WriteRateLimitPerMinute,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}

// selectStore probes PostgreSQL and falls back to the in-memory store when the
// database is unset or unreachable. The returned pool is nil in fallback mode.
func selectStore(cfg config.Config, logger *slog.Logger) (store.Store, *pgxpool.Pool) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("database url missing; using in-memory store", "env", "DATABASE_URL")
		return store.NewMemoryStore(), nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Warn("database url parse failed; using in-memory store", "error", err)
		return store.NewMemoryStore(), nil
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Warn("database pool init failed; using in-memory store", "error", err)
		return store.NewMemoryStore(), nil
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DBConnectTimeoutSeconds)*time.Second)
	defer cancel()
	if err := dbpool.Ping(probeCtx); err != nil {
		logger.Warn("database unreachable; using in-memory store", "error", err)
		dbpool.Close()
		return store.NewMemoryStore(), nil
	}

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelSchema()
	if err := store.EnsureSchema(schemaCtx, dbpool, cfg.DefaultUserID); err != nil {
		logger.Warn("schema bootstrap failed; using in-memory store", "error", err)
		dbpool.Close()
		return store.NewMemoryStore(), nil
	}

	logger.Info("database connected")
	return store.NewPostgresStore(dbpool), dbpool
}
