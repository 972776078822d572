package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/trylook/searchd/internal/config"
	dbRedis "github.com/trylook/searchd/internal/db/redis"
	"github.com/trylook/searchd/internal/domain"
	logpkg "github.com/trylook/searchd/internal/logger"
	"github.com/trylook/searchd/internal/metrics"
	catalogrepo "github.com/trylook/searchd/internal/repository/catalog"
	indexrepo "github.com/trylook/searchd/internal/repository/index"
	chiTransport "github.com/trylook/searchd/internal/transport/chi"
	inferenceEmb "github.com/trylook/searchd/internal/transport/inference"
	openaiEmb "github.com/trylook/searchd/internal/transport/openai"
	healthuc "github.com/trylook/searchd/internal/usecase/health"
	searchuc "github.com/trylook/searchd/internal/usecase/search"
	syncuc "github.com/trylook/searchd/internal/usecase/sync"
	"github.com/trylook/searchd/internal/version"
)

// embeddingProvider is what every backend must offer the composition root.
type embeddingProvider interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.Register()

	embedder := buildEmbedder(cfg, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	catalog := catalogrepo.New(catalogrepo.Config{
		BaseURL:  cfg.Catalog.BaseURL,
		APIKey:   cfg.Catalog.APIKey,
		Table:    cfg.Catalog.Table,
		PageSize: cfg.Catalog.PageSize,
		Timeout:  time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
	})

	index := indexrepo.New(store, indexrepo.Config{
		KeyPrefix:          cfg.Index.KeyPrefix,
		Dimensions:         cfg.Embedding.Dimensions,
		HNSWM:              cfg.Index.HNSWM,
		HNSWEFConstruction: cfg.Index.HNSWEFConstruct,
	})

	syncSvc := syncuc.New(catalog, embedder, index, logger)

	searchSvc := searchuc.New(index, embedder, logger).
		WithSyncer(syncSvc).
		WithConfig(searchuc.Config{
			DefaultLimit:     cfg.Search.DefaultLimit,
			MaxLimit:         cfg.Search.MaxLimit,
			CutoffFraction:   cfg.Search.CutoffFraction,
			NameBoost:        cfg.Search.NameBoost,
			DescriptionBoost: cfg.Search.DescriptionBoost,
		})

	healthSvc := healthuc.New(store, embedder)

	server := chiTransport.NewServer(searchSvc, syncSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder selects the configured embedding backend.
func buildEmbedder(cfg config.Config, logger *zap.Logger) embeddingProvider {
	switch cfg.Embedding.Provider {
	case "openai":
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
			Model:      cfg.Embedding.OpenAI.Model,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
			MaxTextLen: cfg.Embedding.MaxTextLen,
			Logger:     logger,
		})
	default:
		return inferenceEmb.NewEmbedder(&inferenceEmb.Config{
			URL:              cfg.Embedding.Inference.URL,
			APIKey:           cfg.Embedding.Inference.APIKey,
			Model:            cfg.Embedding.Inference.Model,
			BatchSize:        cfg.Embedding.BatchSize,
			MaxTextLen:       cfg.Embedding.MaxTextLen,
			Timeout:          time.Duration(cfg.Embedding.Inference.TimeoutSec) * time.Second,
			ColdStartBackoff: time.Duration(cfg.Embedding.Inference.ColdStartBackoffSec) * time.Second,
			Logger:           logger,
		})
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
