package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salla-analytics/internal/config"
	"salla-analytics/internal/middleware"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/server"
	"salla-analytics/internal/services"
	"salla-analytics/internal/ui/templates"
	"salla-analytics/internal/warehouse"
)

const (
	renderTimeout  = 10 * time.Second
	connectTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

func dashboardHandler(defaults config.DashboardConfig) http.HandlerFunc {
	page := templates.Dashboard(defaults)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(cfg.Dashboard),
	}
	srv := server.NewServer(analytics, cfg.Dashboard, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func openWarehouse(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (warehouse.Source, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	src, err := warehouse.Open(ctx, warehouse.Config{
		DSN:             cfg.DSN,
		MaxConnections:  cfg.MaxConnections,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		QueryTimeout:    cfg.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.CheckSchema {
		if err := src.CheckSchema(ctx); err != nil {
			src.Close()
			return nil, err
		}
	}

	logger.Info("warehouse connected", "driver", src.Driver())
	return src, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"cache_ttl", cfg.Cache.TTL,
	)

	start := time.Now()
	src, err := openWarehouse(context.Background(), cfg.Warehouse, logger)
	if err != nil {
		logger.Error("failed to open warehouse", "error", err)
		os.Exit(1)
	}
	logger.Info("warehouse ready", "duration", time.Since(start))

	analytics := services.NewAnalytics(src, logger,
		services.WithCacheTTL(cfg.Cache.TTL),
		services.WithCacheSize(cfg.Cache.MaxEntries),
	)

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	analytics.StartCleanup(cleanupCtx, cfg.Cache.CleanupInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.OnShutdown("warehouse", func(context.Context) error {
		logger.Info("closing warehouse connection", "driver", src.Driver())
		return src.Close()
	})
	gracefulServer.OnShutdownCancel("cache cleanup", stopCleanup)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gracefulServer.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
