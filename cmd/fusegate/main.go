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
	"go.uber.org/zap"

	"github.com/fusegate/fusegate/internal/config"
	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/tenant"
	logpkg "github.com/fusegate/fusegate/internal/logger"
	"github.com/fusegate/fusegate/internal/metrics"
	"github.com/fusegate/fusegate/internal/repository/fusioncache"
	searchrepo "github.com/fusegate/fusegate/internal/repository/search"
	chiTransport "github.com/fusegate/fusegate/internal/transport/chi"
	openaiEmb "github.com/fusegate/fusegate/internal/transport/openai"
	"github.com/fusegate/fusegate/internal/usecase/admission"
	searchuc "github.com/fusegate/fusegate/internal/usecase/search"
	"github.com/fusegate/fusegate/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting fusegate API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("backend_addrs", cfg.Database.Addrs),
		zap.String("rate_strategy", cfg.Rate.Strategy),
	)

	// Connect to the search backend
	repo, err := searchrepo.New(searchrepo.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create search backend client", zap.Error(err))
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}
	logger.Info("Connected to search backend")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Admission gate
	gate := admission.NewGate(
		budgetFromConfig(cfg.Rate.Strategy, cfg.Rate.DefaultLimits),
		tenantOverrides(cfg.Rate),
		time.Duration(cfg.Rate.MaxDeferMS)*time.Millisecond,
		metrics.AdmissionTotal,
	)

	// Result cache
	cache, err := fusioncache.New(
		cfg.Cache.MaxEntries,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		metrics.ResultCacheTotal,
	)
	if err != nil {
		logger.Fatal("Failed to create result cache", zap.Error(err))
	}

	// Search pipeline
	searchSvc := searchuc.New(gate, cache, repo, repo).
		WithFusion(cfg.Fusion.K0, cfg.Fusion.CandidatePool).
		WithAdapterTimeout(time.Duration(cfg.Database.AdapterTimeoutMS) * time.Millisecond).
		WithMetrics(metrics.FusionDuration, metrics.AdapterErrorsTotal)

	if cfg.Embedding.Model != "" {
		searchSvc.WithEmbedder(openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		}))
		logger.Info("Query embedder enabled", zap.String("model", cfg.Embedding.Model))
	}

	server := chiTransport.NewServer(searchSvc, repo, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(identitiesFromConfig(cfg.Auth)))
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

func budgetFromConfig(strategy string, l config.LimitsConfig) tenant.Budget {
	return tenant.NewBudget(tenant.Strategy(strategy), tenant.Limits{
		PerMinute: l.PerMinute,
		PerHour:   l.PerHour,
		PerDay:    l.PerDay,
		Burst:     l.Burst,
	})
}

func tenantOverrides(rc config.RateConfig) map[string]tenant.Budget {
	overrides := make(map[string]tenant.Budget, len(rc.Tenants))
	for name, t := range rc.Tenants {
		strategy := t.Strategy
		if strategy == "" {
			strategy = rc.Strategy
		}
		limits := t.Limits
		if limits == (config.LimitsConfig{}) {
			limits = rc.DefaultLimits
		}
		if limits.Burst <= 0 {
			limits.Burst = rc.DefaultLimits.Burst
		}
		overrides[name] = budgetFromConfig(strategy, limits)
	}
	return overrides
}

func identitiesFromConfig(ac config.AuthConfig) map[string]domain.Identity {
	identities := make(map[string]domain.Identity, len(ac.APIKeys))
	for _, k := range ac.APIKeys {
		if k.Key == "" {
			continue
		}
		identities[k.Key] = domain.Identity{TenantID: k.Tenant, OpClass: k.OpClass}
	}
	return identities
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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
