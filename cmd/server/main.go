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

	"github.com/rs/zerolog"

	"api-chatbot/internal/config"
	"api-chatbot/internal/database"
	"api-chatbot/internal/handlers"
	"api-chatbot/internal/lock"
	"api-chatbot/internal/logging"
	"api-chatbot/internal/repository"
	"api-chatbot/internal/router"
	"api-chatbot/internal/services"
	"api-chatbot/internal/websocket"
)

// lockTTL outlives the longest history write a turn may perform.
const lockTTL = 15 * time.Second

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger := logging.New(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Info().Str("env", cfg.Env).Str("store", cfg.StoreBackend).Msg("configuration loaded")
	if cfg.DebugErrors && !cfg.IsDevelopment() {
		logger.Warn().Msg("DEBUG_ERRORS is enabled outside development; provider errors are echoed to clients")
	}

	ctx := context.Background()

	// ──── Step 2: Initialize History Store ────
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.StoreBackend).Msg("history store initialization failed")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store.Close(closeCtx)
	}()

	// ──── Step 3: Initialize Redis Clients (optional) ────
	var locker lock.Locker = lock.NewLocal(cfg.HistoryLockTimeout)
	var hub *websocket.Hub
	generateLimiter := router.NewGenerateLimiter(cfg.GenerateRateLimit)
	defer generateLimiter.Stop()
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-process lock and event delivery")
			hub = websocket.NewHub(nil, logger)
		} else {
			defer redisClients.Close()
			locker = lock.NewRedis(redisClients.Commands, lockTTL, cfg.HistoryLockTimeout, logger)
			hub = websocket.NewHub(redisClients.PubSub, logger)
			generateLimiter.UseRedis(redisClients.Commands, logger)
			logger.Info().Msg("redis connected")
		}
	} else {
		hub = websocket.NewHub(nil, logger)
	}
	defer hub.Close()

	// ──── Step 4: Initialize Gemini Client ────
	gateway, err := services.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		logger.Fatal().Err(err).Msg("gemini client initialization failed")
	}
	defer gateway.Close()
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; every /generate call will fail")
	} else {
		logger.Info().Str("model", gateway.ModelName()).Str("key", logging.Mask(cfg.GeminiAPIKey)).Msg("gemini client initialized")
	}

	// ──── Initialize Services & Handlers ────
	relay := services.NewRelayService(gateway, store, locker, hub, logger)
	chatHandler := handlers.NewChatHandler(relay, cfg.DebugErrors)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(chatHandler, hub, generateLimiter, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info().Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("api-chatbot relay ready")

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	<-shutdownDone
}

// openStore builds the configured history backend. An unreachable MongoDB is
// logged and tolerated: the driver keeps reconnecting and turns report
// persisted=false until it does.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.HistoryStore, error) {
	switch cfg.StoreBackend {
	case "mongo":
		client, err := database.NewMongoClient(ctx, cfg.MongoURI)
		if client == nil {
			return nil, err
		}
		if err != nil {
			logger.Error().Err(err).Msg("mongodb unreachable at startup, continuing without persistence")
		}

		repo := repository.NewMongoHistoryRepo(client, cfg.MongoDatabase)
		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(indexCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to ensure chats indexes")
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("mongodb history store ready")
		return repo, nil

	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Msg("postgres history store ready")
		return repository.NewPostgresHistoryRepo(pool), nil

	case "sqlite":
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("sqlite history store ready")
		return repository.NewSQLiteHistoryRepo(db), nil

	case "memory":
		logger.Warn().Msg("using in-memory history store; history is lost on restart")
		return repository.NewMemoryHistoryRepo(), nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
