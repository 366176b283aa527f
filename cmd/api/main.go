package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shortener/internal/config"
	"github.com/SergeiKhy/shortener/internal/handler"
	"github.com/SergeiKhy/shortener/internal/middleware"
	"github.com/SergeiKhy/shortener/internal/migrations"
	"github.com/SergeiKhy/shortener/internal/repository"
	"github.com/SergeiKhy/shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.App.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	linkService := service.NewLinkService(store, service.Options{
		CodeLength:             cfg.Links.CodeLength,
		CodeMaxRetries:         cfg.Links.CodeMaxRetries,
		DefaultValidityMinutes: cfg.Links.DefaultValidityMinutes,
		MaxValidityMinutes:     cfg.Links.MaxValidityMinutes,
	}, logger)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	var apiKeyMiddleware gin.HandlerFunc
	if len(cfg.Auth.APIKeys) > 0 {
		apiKeyMiddleware = middleware.RequireAPIKey(cfg.Auth.APIKeys)
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	}

	router := handler.NewRouter(linkService, rateLimiter, apiKeyMiddleware, cfg.App.BaseURL, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore connects the configured backend and returns a func releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.LinkStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		if err := migrate(cfg.DB.DSN(), logger); err != nil {
			return nil, nil, err
		}
		db, err := repository.NewPostgresDB(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return repository.NewPostgresStore(db), db.Close, nil

	case config.BackendRedis:
		rdb, err := repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to Redis")
		return repository.NewRedisStore(rdb), func() { rdb.Close() }, nil

	default:
		logger.Warn("Using in-memory storage, links are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
}

func migrate(dsn string, logger *zap.Logger) error {
	m, err := migrations.New(dsn, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}
