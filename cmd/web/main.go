package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"shopping-dashboard/internal/config"
	"shopping-dashboard/internal/errors"
	"shopping-dashboard/internal/middleware"
	"shopping-dashboard/internal/observability"
	"shopping-dashboard/internal/pipeline"
	"shopping-dashboard/internal/sample"
	"shopping-dashboard/internal/server"
	"shopping-dashboard/internal/services"
	"shopping-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "private, max-age=60"
)

func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		page := templates.Dashboard(analytics.SegmentNames(), analytics.Format().String())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func segmentOptions(cfg config.SegmentationConfig) pipeline.SegmentOptions {
	opts := pipeline.DefaultSegmentOptions()
	opts.Seed = cfg.Seed
	opts.NInit = cfg.NInit
	opts.MaxIterations = cfg.MaxIterations
	if cfg.LabelStrategy == config.LabelStrategyRanked {
		opts.Labels = pipeline.LabelByRank
	}
	return opts
}

func loadData(ctx context.Context, cfg *config.Config, analytics *services.Analytics) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Server.LoadTimeout)
	defer cancel()

	switch cfg.Data.Source {
	case config.DataSourceSample:
		analytics.LoadSample(ctx, sample.Options{
			Users: cfg.Data.SampleUsers,
			Days:  cfg.Data.SampleDays,
			Seed:  cfg.Segmentation.Seed,
		})
		return nil
	default:
		return analytics.LoadFromCSV(ctx, cfg.Data.CSVFile)
	}
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

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

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"data_source", cfg.Data.Source,
		"seed", cfg.Segmentation.Seed,
	)

	analytics := services.NewAnalytics(
		services.WithLogger(logger),
		services.WithSegmentOptions(segmentOptions(cfg.Segmentation)),
		services.WithMetrics(observability.NewMetrics()),
	)

	start := time.Now()
	if err := loadData(context.Background(), cfg, analytics); err != nil {
		if errors.IsFatalInput(err) {
			fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		}
		return fmt.Errorf("load data: %w", err)
	}
	logger.Info("data loaded successfully", "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("application stopped gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}
