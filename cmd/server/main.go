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

	"go.uber.org/zap"

	"nexuserp/backend/internal/cache"
	"nexuserp/backend/internal/config"
	"nexuserp/backend/internal/httpapi"
	"nexuserp/backend/internal/insight"
	"nexuserp/backend/internal/metrics"
	"nexuserp/backend/internal/service"
	"nexuserp/backend/internal/store"
	"nexuserp/backend/internal/store/slots"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid storage configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slot, closers, err := slots.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage unavailable; refusing to start with in-memory fallback",
			zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	repo := store.NewStateStore(slot, cfg.StorageKey, logger.Named("store"))

	insightCache := cache.InsightCache(cache.NoopInsightCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisInsightCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop insight cache", zap.Error(err))
		} else {
			insightCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("insight cache: redis")
		}
	} else {
		logger.Info("insight cache: noop")
	}

	summarizer := insight.Summarizer(insight.NoopSummarizer{})
	if cfg.GenAIAPIKey != "" {
		genai, err := insight.NewGenAISummarizer(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			logger.Warn("genai unavailable, briefings will use fallback text", zap.Error(err))
		} else {
			summarizer = genai
			logger.Info("summarizer: genai", zap.String("model", genai.Name()))
		}
	} else {
		logger.Info("summarizer: disabled (GENAI_API_KEY not set)")
	}

	m := metrics.New()
	engine := insight.NewEngine(summarizer, insightCache, cfg.InsightCacheTTL(), cfg.InsightTimeout(),
		insight.WithMetrics(m), insight.WithLogger(logger.Named("insight")))
	svc := service.New(repo, engine, service.WithMetrics(m), service.WithLogger(logger.Named("service")))

	// Seed or migrate the stored document before taking traffic.
	if _, err := svc.State(ctx); err != nil {
		logger.Fatal("load business state", zap.Error(err))
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL())
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, httpapi.WithLogger(logger.Named("http")), httpapi.WithMetrics(m))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.InsightTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("ERP backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = parsed
	}
	return cfg.Build()
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
