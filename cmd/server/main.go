package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kelvin-backend/internal/config"
	"kelvin-backend/internal/database"
	"kelvin-backend/internal/handlers"
	"kelvin-backend/internal/metrics"
	"kelvin-backend/internal/middleware"
	"kelvin-backend/internal/quests"
	"kelvin-backend/internal/repository"
	"kelvin-backend/internal/router"
	"kelvin-backend/internal/safety"
	"kelvin-backend/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("🚀 Starting Kelvin Backend...")
	logger.Info("✓ Environment variables loaded", zap.String("env", cfg.Env))

	m := metrics.New()

	// ──── Step 2: Load Quest Catalog ────
	catalog, source, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal("✗ Quest catalog failed to load", zap.Error(err))
	}
	logger.Info("✓ Quest catalog loaded", zap.String("source", source), zap.Int("quests", catalog.Len()))

	// ──── Step 3: Initialize Gemini Relay ────
	var backend services.ChatBackend
	gemini, err := services.NewGeminiBackend(context.Background(), cfg.GeminiAPIKey, services.GeminiOptions{
		Model:       cfg.GeminiModel,
		Temperature: &cfg.GeminiTemperature,
	})
	if err != nil {
		logger.Error("CRITICAL: Error configuring Gemini API, chat relay disabled", zap.Error(err))
	} else {
		defer gemini.Close()
		backend = gemini
		logger.Info("✓ Gemini API configured successfully", zap.String("model", gemini.ModelName()))
	}
	relay := services.NewRelay(backend, services.RelayOptions{
		Timeout:       cfg.RelayTimeout,
		MaxConcurrent: cfg.GeminiConcurrentReqs,
	}, logger.Named("relay"), m)

	// ──── Step 4: Initialize Chat Rate Limiter ────
	var limiter middleware.Limiter
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("✗ Redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		limiter = middleware.NewRedisLimiter(redisClient, "ratelimit:chat:", cfg.ChatRateLimit, cfg.ChatRateWindow)
		logger.Info("✓ Redis rate limiter connected")
	} else {
		memLimiter := middleware.NewMemoryLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
		defer memLimiter.Close()
		limiter = memLimiter
		logger.Info("✓ In-memory rate limiter ready")
	}
	chatLimiter := middleware.NewRateLimiter(limiter, logger.Named("ratelimit"), m)

	proxyTrust, err := middleware.ParseProxyTrust(cfg.TrustProxyHeaders, cfg.TrustedProxies)
	if err != nil {
		logger.Fatal("✗ Invalid TRUSTED_PROXIES", zap.Error(err))
	}
	if proxyTrust.Enabled {
		logger.Info("✓ Forwarded client addresses trusted", zap.Strings("proxies", cfg.TrustedProxies))
	}

	// ──── Initialize Handlers ────
	screener := safety.NewScreener(cfg.ExtraCrisisKeywords...)
	statusHandler := handlers.NewStatusHandler(relay, catalog)
	questHandler := handlers.NewQuestHandler(quests.NewPicker(catalog, nil), m)
	chatHandler := handlers.NewChatHandler(screener, relay, logger.Named("chat"), m)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		logger.Named("http"),
		statusHandler,
		questHandler,
		chatHandler,
		chatLimiter,
		m,
		cfg.AllowedOrigins,
		proxyTrust,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RelayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown incomplete", zap.Error(err))
		}
		close(idle)
	}()

	logger.Info(fmt.Sprintf("✓ Kelvin Backend ready on http://localhost:%s", cfg.Port),
		zap.Bool("relay_enabled", relay.Enabled()),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
	<-idle
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

// loadCatalog picks the first configured source: database, file, then the
// embedded default.
func loadCatalog(cfg *config.Config) (*quests.Catalog, string, error) {
	switch {
	case cfg.QuestsDatabaseURL != "":
		pool, err := database.NewPostgresPool(cfg.QuestsDatabaseURL)
		if err != nil {
			return nil, "", err
		}
		defer pool.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		catalog, err := quests.LoadStore(ctx, repository.NewQuestRepo(pool))
		return catalog, "postgres", err
	case cfg.QuestsFile != "":
		catalog, err := quests.LoadFile(cfg.QuestsFile)
		return catalog, cfg.QuestsFile, err
	default:
		catalog, err := quests.Default()
		return catalog, "embedded", err
	}
}
