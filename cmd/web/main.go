package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/geo"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/resilience"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"orders_csv", cfg.Dataset.OrdersCSV,
		"geolocation_csv", cfg.Dataset.GeolocationCSV,
		"boundary_country", cfg.Dataset.BoundaryCountry,
	)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	analytics := services.NewAnalytics()
	analytics.SetLogger(logger)
	if metrics != nil {
		analytics.SetRecorder(metrics)
	}

	if err := loadDataset(cfg, analytics, metrics, logger); err != nil {
		if errors.Is(err, services.ErrInputFile) || errors.Is(err, services.ErrMalformedInput) {
			logger.Error("dataset rejected", "error", err)
		} else {
			logger.Error("failed to load dataset", "error", err)
		}
		os.Exit(1)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	handler := newHandler(cfg, analytics, metrics, rateLimiter, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook("rate-limiter", func(context.Context) error {
		rateLimiter.Close()
		return nil
	})
	gracefulServer.RegisterShutdownHook("analytics", func(context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

// loadDataset reads both CSVs and fetches the country outline within the load timeout.
func loadDataset(cfg *config.Config, analytics *services.Analytics, metrics *observability.Metrics, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()

	fetcher := &geo.Fetcher{
		URL:      cfg.Dataset.BoundaryURL,
		Country:  cfg.Dataset.BoundaryCountry,
		Timeout:  cfg.Dataset.BoundaryTimeout,
		Retrier:  resilience.New("boundary_fetch", retryPolicy(cfg.Resilience), logger),
	}
	if metrics != nil {
		fetcher.Recorder = metrics
	}

	src := services.Sources{
		OrdersPath:      cfg.Dataset.OrdersCSV,
		GeolocationPath: cfg.Dataset.GeolocationCSV,
	}
	if cfg.Dataset.BoundaryURL != "" {
		src.Boundary = fetcher
	}
	return analytics.Load(ctx, src)
}

func newHandler(
	cfg *config.Config,
	analytics *services.Analytics,
	metrics *observability.Metrics,
	rateLimiter *middleware.RateLimiter,
	logger *slog.Logger,
) http.Handler {
	srv := server.NewServer(analytics, logger, server.Options{
		Metrics:     metrics,
		MetricsPath: cfg.Metrics.Path,
	})

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.Metrics(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)
	return chain(srv)
}

func retryPolicy(c config.ResilienceConfig) resilience.Policy {
	return resilience.Policy{
		Attempts:  c.RetryMaxAttempts,
		BaseDelay: c.RetryInitialBackoff,
		MaxDelay:  c.RetryMaxBackoff,
		Breaker:   c.BreakerEnabled,
		OpenFor:   c.BreakerOpenTimeout,
	}
}
