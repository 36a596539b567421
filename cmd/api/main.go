package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"p2p-transfer-service/config"
	httpClient "p2p-transfer-service/internal/adapter/client"
	httpHandler "p2p-transfer-service/internal/adapter/http/handler"
	pgStorage "p2p-transfer-service/internal/adapter/storage/postgres"
	redisStorage "p2p-transfer-service/internal/adapter/storage/redis"
	"p2p-transfer-service/internal/core/ports"
	"p2p-transfer-service/internal/service"
	"p2p-transfer-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting P2P Transfer Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	transferRepo := pgStorage.NewTransferRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis cache
	accountCache := redisStorage.NewAccountCache(rdb, cfg.Cache.AccountTTL, cfg.Cache.ListingTTL)

	// Initialize external clients
	authGate := httpClient.NewAuthorizationClient(cfg.External.AuthorizationURL, cfg.External.AuthorizationTimeout, log)
	notifier := httpClient.NewNotificationClient(cfg.External.NotificationURL, cfg.External.NotificationTimeout, log)

	// Initialize business services
	hashSvc := service.NewBcryptHashService()
	userSvc := service.NewUserService(accountRepo, hashSvc, accountCache, log)
	transferSvc := service.NewTransferService(
		accountRepo,
		transferRepo,
		transactor,
		authGate,
		notifier,
		accountCache,
		cfg.External.NotificationTimeout,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    transferSvc,
		UserSvc:        userSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
