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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/aba-directory/cmd/mainconfig"
	"github.com/wolfman30/aba-directory/internal/api/router"
	"github.com/wolfman30/aba-directory/internal/app/bootstrap"
	"github.com/wolfman30/aba-directory/internal/clients"
	appconfig "github.com/wolfman30/aba-directory/internal/config"
	"github.com/wolfman30/aba-directory/internal/events"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/observability/metrics"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

const (
	processedEventRetention = 30 * 24 * time.Hour
	purgeInterval           = 24 * time.Hour
	overdueTaskInterval     = 15 * time.Minute
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting aba-directory API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := bootstrap.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open reporting connection", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, directoryMetrics := setupMetrics()

	routerCfg, err := bootstrap.BuildAPI(ctx, cfg, bootstrap.Infra{
		Pool:           pool,
		SQL:            db,
		Redis:          redisClient,
		S3:             mainconfig.NewS3Client(awsCfg, cfg),
		SES:            mainconfig.NewSESClient(awsCfg, cfg),
		Metrics:        directoryMetrics,
		MetricsHandler: metricsHandler,
	}, logger)
	if err != nil {
		logger.Error("failed to wire API", "error", err)
		os.Exit(1)
	}

	go purgeProcessedEvents(ctx, events.NewProcessedStore(pool), logger, purgeInterval)
	go remindOverdueTasks(ctx,
		clients.NewReminder(clients.NewPostgresRepository(pool), notifications.NewPostgresRepository(pool), logger),
		logger, overdueTaskInterval)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the directory collectors on a private registry and
// returns the /metrics handler.
func setupMetrics() (http.Handler, *metrics.DirectoryMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewDirectoryMetrics(reg)
}

type eventPurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// purgeProcessedEvents drops webhook dedupe rows older than the retention
// window until ctx is cancelled.
func purgeProcessedEvents(ctx context.Context, store eventPurger, logger *logging.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := store.Purge(ctx, time.Now().Add(-processedEventRetention))
		switch {
		case err != nil:
			if ctx.Err() == nil {
				logger.Error("failed to purge processed events", "error", err)
			}
		case n > 0:
			logger.Info("purged processed events", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type overdueNotifier interface {
	NotifyOverdue(ctx context.Context) (int, error)
}

// remindOverdueTasks raises overdue task notifications until ctx is
// cancelled.
func remindOverdueTasks(ctx context.Context, n overdueNotifier, logger *logging.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		raised, err := n.NotifyOverdue(ctx)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				logger.Error("failed to remind overdue tasks", "error", err)
			}
		case raised > 0:
			logger.Info("reminded overdue tasks", "count", raised)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
