package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/medcena/offer-service/config"
	"github.com/medcena/offer-service/internal/alerts"
	"github.com/medcena/offer-service/internal/database"
	"github.com/medcena/offer-service/internal/handlers"
	"github.com/medcena/offer-service/internal/importer"
	"github.com/medcena/offer-service/internal/middleware"
	"github.com/medcena/offer-service/internal/notify"
	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/snapshot"
	"github.com/medcena/offer-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting offer service")

	ctx := context.Background()

	telemetryCleanup := telemetry.MustInit(ctx, telemetry.GetConfigFromEnv())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryCleanup(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	if err := importer.EnsureSchema(ctx, database.Pool()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure offer schema")
	}
	if err := alerts.EnsureSchema(ctx, database.Pool()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure alerts schema")
	}

	normalizer := &pricing.Normalizer{
		PackageSizes:    cfg.Pricing.PackageSizes,
		ShortExpiryDays: cfg.Pricing.ShortExpiryDays,
	}
	loader := snapshot.NewPGLoader(database.Pool(), normalizer)
	store := snapshot.NewStore(loader, cfg.Snapshot.LoadTimeout)
	defer store.Close()

	go func() {
		for {
			err := store.Warmup(ctx)
			if err == nil {
				return
			}
			logger.Error().Err(err).Msg("Snapshot warmup failed; serving 503 until a retry succeeds")
			select {
			case <-time.After(10 * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()
	store.StartAutoRefresh(cfg.Snapshot.RefreshInterval)

	alertStore := alerts.NewStore(database.Pool())
	notifier := notify.NewNotifier(cfg.Notify.WebhookURL, cfg.Notify.MaxRetries, cfg.Notify.Timeout)
	evaluator := alerts.NewEvaluator(alertStore, notifier, cfg.Alerts.PriceWindow, 24*time.Hour)
	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	go runAlertSweeps(sweepCtx, store, evaluator, cfg.Snapshot.RefreshInterval, logger)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)
	router.Use(middleware.RateLimitMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.Burst,
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := handlers.NewAPI(store, cfg.Pricing, alertStore)
	api.RegisterRoutes(router)

	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	stopSweeps()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// runAlertSweeps evaluates price alerts against the freshest snapshot on the
// same cadence the snapshot refreshes.
func runAlertSweeps(ctx context.Context, store *snapshot.Store, evaluator *alerts.Evaluator, interval time.Duration, logger *zerolog.Logger) {
	if interval <= 0 {
		return
	}
	if !store.WaitReady(ctx) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap := store.Current()
			if snap == nil {
				continue
			}
			if err := evaluator.Evaluate(ctx, snap.Corpus); err != nil {
				logger.Warn().Err(err).Msg("Alert sweep failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "offer-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
