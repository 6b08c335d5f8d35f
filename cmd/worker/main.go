package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"newsrelay/internal/config"
	"newsrelay/internal/infra/adapter/persistence/badgerstore"
	"newsrelay/internal/infra/adapter/persistence/guard"
	"newsrelay/internal/infra/adapter/persistence/memory"
	pgRepo "newsrelay/internal/infra/adapter/persistence/postgres"
	sqliteRepo "newsrelay/internal/infra/adapter/persistence/sqlite"
	"newsrelay/internal/infra/db"
	"newsrelay/internal/infra/fetcher"
	"newsrelay/internal/infra/notifier"
	"newsrelay/internal/infra/scraper"
	workerPkg "newsrelay/internal/infra/worker"
	"newsrelay/internal/observability/logging"
	"newsrelay/internal/observability/tracing"
	"newsrelay/internal/repository"
	"newsrelay/internal/resilience/retry"
	"newsrelay/internal/usecase/relay"
)

const serviceName = "newsrelay"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("ignoring .env file", slog.Any("error", err))
	}
	logger := initLogger()

	if err := run(logger); err != nil {
		logger.Error("worker stopped with error", slog.String("error", logging.SanitizeError(err)))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp := tracing.InitProvider(serviceName)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown failed", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg, err := config.Load(logger, workerMetrics.ConfigMetrics)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("configuration loaded",
		slog.String("source_url", cfg.Source.SourceURL),
		slog.String("source_format", cfg.Source.Format),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Duration("poll_interval", cfg.Worker.PollInterval),
		slog.String("poll_schedule", cfg.Worker.PollSchedule),
		slog.Int("failure_threshold", cfg.Worker.FailureThreshold),
		slog.Duration("cooldown_period", cfg.Worker.CooldownPeriod),
		slog.Int("retention_limit", cfg.Relay.RetentionLimit),
		slog.Bool("summary_enabled", cfg.Summary.Enabled),
		slog.Any("fallbacks", cfg.Fallbacks))

	store, err := initStore(ctx, logger, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()
	waitForMigrations(ctx, logger, store)

	extractor, err := scraper.NewExtractor(cfg.Source.Format, createHTTPClient(cfg.Source.Timeout), cfg.Source.Config)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}

	var summaries relay.SummaryFetcher
	if cfg.Summary.Enabled {
		summaries = fetcher.NewReadabilityFetcher(cfg.Summary)
		logger.Info("summary fetching enabled",
			slog.Duration("timeout", cfg.Summary.Timeout),
			slog.Int("max_length", cfg.Summary.MaxLength))
	}

	svc := relay.NewService(store, extractor, initNotifier(logger, cfg.Notify), summaries, cfg.Relay)

	// The first cycle retries a failed baseline, so startup continues.
	if n, err := svc.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap deferred to first cycle", slog.String("error", logging.SanitizeError(err)))
	} else if n > 0 {
		logger.Info("bootstrap recorded baseline", slog.Int("items", n))
	}

	schedule, err := cfg.Worker.Schedule()
	if err != nil {
		return fmt.Errorf("poll schedule: %w", err)
	}
	scheduler := workerPkg.NewScheduler(svc, schedule, cfg.Worker, workerMetrics, logger)

	g, gctx := errgroup.WithContext(ctx)

	healthAddr := fmt.Sprintf(":%d", cfg.Worker.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	g.Go(func() error {
		if err := healthServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	if cfg.Worker.MetricsPort > 0 {
		g.Go(func() error {
			return runMetricsServer(gctx, logger, cfg.Worker.MetricsPort)
		})
	} else {
		logger.Info("metrics server disabled")
	}

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	logger.Info("worker started",
		slog.String("health_addr", healthAddr),
		slog.Bool("bootstrapped", svc.Bootstrapped()))
	return g.Wait()
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func initLogger() *slog.Logger {
	logger := logging.New(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	slog.SetDefault(logger)
	return logger
}

// storeBackend is what every dedup store driver provides to main.
type storeBackend interface {
	repository.SentRecordRepository
	Migrate(ctx context.Context) error
}

// sqlBackend closes the database handle behind a SQL repository.
type sqlBackend struct {
	storeBackend
	closer io.Closer
}

func (b sqlBackend) Close() error { return b.closer.Close() }

// initStore opens the configured backend and wraps it in the retry and
// circuit breaker guard.
func initStore(ctx context.Context, logger *slog.Logger, cfg config.StoreConfig) (*guard.Store, error) {
	var backend repository.SentRecordRepository
	switch cfg.Driver {
	case config.DriverPostgres:
		database, err := db.OpenPostgres(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		backend = sqlBackend{storeBackend: pgRepo.NewSentRecordRepo(database), closer: database}
	case config.DriverSQLite:
		database, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		backend = sqlBackend{storeBackend: sqliteRepo.NewSentRecordRepo(database), closer: database}
	case config.DriverBadger:
		bs, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		backend = bs
	default:
		logger.Warn("using in-memory dedup store, history is lost on restart")
		backend = memory.NewStore()
	}
	logger.Info("dedup store initialized",
		slog.String("driver", cfg.Driver),
		slog.Int("retry_attempts", cfg.Guard.Attempts),
		slog.Duration("retry_delay", cfg.Guard.Delay))
	return guard.New(backend, cfg.Guard), nil
}

// waitForMigrations creates the schema, waiting for a database that is still
// starting. Giving up is not fatal: store calls keep failing until it is
// reachable and bootstrap stays pending.
func waitForMigrations(ctx context.Context, logger *slog.Logger, store *guard.Store) {
	rc := retry.StoreConfig(5, 3*time.Second)
	err := retry.WithBackoff(ctx, rc, func() error {
		err := store.Migrate(ctx)
		if err != nil {
			logger.Info("waiting for migrations, retrying", slog.String("error", logging.SanitizeError(err)))
		}
		return err
	})
	if err != nil {
		logger.Warn("migrations did not complete", slog.String("error", logging.SanitizeError(err)))
	}
}

// initNotifier returns the Discord notifier, or a no-op one when no webhook
// is configured.
func initNotifier(logger *slog.Logger, cfg notifier.DiscordConfig) relay.Notifier {
	if cfg.WebhookURL == "" {
		logger.Warn("DISCORD_WEBHOOK_URL not set, notifications are discarded")
		return notifier.NewNoOpNotifier()
	}
	logger.Info("Discord notifier initialized", slog.Duration("timeout", cfg.Timeout))
	return notifier.NewDiscordNotifier(cfg)
}

// createHTTPClient creates the source HTTP client with a per-request timeout.
// TLS 1.2+ is enforced.
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
