// Package config assembles the relay configuration from an optional .env
// file, an optional YAML file named by CONFIG_FILE, and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"newsrelay/internal/infra/adapter/persistence/guard"
	"newsrelay/internal/infra/db"
	"newsrelay/internal/infra/fetcher"
	"newsrelay/internal/infra/notifier"
	"newsrelay/internal/infra/scraper"
	"newsrelay/internal/infra/worker"
	pkgconfig "newsrelay/internal/pkg/config"
	"newsrelay/internal/usecase/relay"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverMemory   = "memory"
)

const (
	DefaultSourceURL      = "https://forums.ea.com/category/star-wars-galaxy-of-heroes-en/blog/swgoh-game-info-hub-en"
	DefaultItemSelector   = "h4 a[href*='/blog/']"
	defaultSourceTimeout  = 15 * time.Second
	defaultStoreRetryWait = 2 * time.Second
)

// SourceConfig describes the polled page.
type SourceConfig struct {
	scraper.Config
	Format  string
	Timeout time.Duration
}

// StoreConfig selects and parameterizes the dedup store backend.
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	Postgres    db.PostgresParams
	SQLitePath  string
	BadgerPath  string
	Guard       guard.Config
}

// PostgresDSN returns DatabaseURL, or a DSN built from the PG_* settings.
func (s StoreConfig) PostgresDSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	return s.Postgres.DSN()
}

// Config is the full relay configuration.
type Config struct {
	Source  SourceConfig
	Notify  notifier.DiscordConfig
	Summary fetcher.SummaryConfig
	Store   StoreConfig
	Relay   relay.Config
	Worker  worker.WorkerConfig

	// Fallbacks lists the keys whose values were invalid and replaced by
	// defaults.
	Fallbacks []string
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration. Invalid values fall back to defaults and are
// reported through metrics and the logger; only an unreadable CONFIG_FILE is
// an error.
func Load(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*Config, error) {
	var file map[string]string
	if path := pkgconfig.NewLoader(logger, nil, nil).String("CONFIG_FILE", ""); path != "" {
		var err error
		file, err = pkgconfig.ReadFile(path)
		if err != nil {
			return nil, err
		}
		logger.Info("configuration file loaded", slog.String("path", path), slog.Int("keys", len(file)))
	}

	l := pkgconfig.NewLoader(logger, metrics, file)
	cfg := &Config{
		Source:  loadSource(l),
		Notify:  loadNotify(l),
		Summary: loadSummary(l),
		Store:   loadStore(l),
		Worker:  worker.LoadConfig(l),
	}

	cfg.Relay = relay.DefaultConfig()
	cfg.Relay.RetentionLimit = l.Int("RETENTION_LIMIT", cfg.Relay.RetentionLimit, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100000)
	})
	cfg.Relay.ItemDelay = l.Duration("NOTIFY_ITEM_DELAY", cfg.Relay.ItemDelay, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 0, 10*time.Second)
	})

	cfg.Summary.MaxLength = cfg.Notify.DescriptionLimit

	cfg.Fallbacks = l.Finish()
	return cfg, nil
}

func loadSource(l *pkgconfig.Loader) SourceConfig {
	src := SourceConfig{
		Config: scraper.Config{
			SourceURL: l.StringWith("SOURCE_URL", DefaultSourceURL, pkgconfig.ValidateHTTPURL),
			MaxItems:  l.Int("SOURCE_MAX_ITEMS", 5, func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 50) }),
		},
		Format:  strings.ToLower(l.StringWith("SOURCE_FORMAT", scraper.FormatHTML, pkgconfig.OneOf(scraper.FormatHTML, scraper.FormatRSS))),
		Timeout: l.Duration("SOURCE_TIMEOUT", defaultSourceTimeout, func(d time.Duration) error { return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute) }),
	}
	src.BaseURL = l.StringWith("SOURCE_BASE_URL", originOf(src.SourceURL), pkgconfig.ValidateHTTPURL)
	src.ItemSelector = l.String("SOURCE_ITEM_SELECTOR", DefaultItemSelector)
	return src
}

func loadNotify(l *pkgconfig.Loader) notifier.DiscordConfig {
	cfg := notifier.DefaultDiscordConfig()
	cfg.WebhookURL = l.StringWith("DISCORD_WEBHOOK_URL", "", pkgconfig.ValidateHTTPURL)
	cfg.Content = l.String("NOTIFY_CONTENT", cfg.Content)
	cfg.Footer = l.String("NOTIFY_FOOTER", cfg.Footer)
	cfg.FallbackDescription = l.String("NOTIFY_FALLBACK_DESCRIPTION", cfg.FallbackDescription)
	cfg.DescriptionLimit = l.Int("NOTIFY_DESCRIPTION_LIMIT", cfg.DescriptionLimit, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 4096)
	})
	cfg.Color = l.Int("NOTIFY_COLOR", cfg.Color, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 0xFFFFFF)
	})
	cfg.Timeout = l.Duration("NOTIFY_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, time.Minute)
	})
	return cfg
}

func loadSummary(l *pkgconfig.Loader) fetcher.SummaryConfig {
	cfg := fetcher.DefaultConfig()
	cfg.Enabled = l.Bool("SUMMARY_ENABLED", cfg.Enabled)
	cfg.Timeout = l.Duration("SUMMARY_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, time.Minute)
	})
	cfg.DenyPrivateIPs = l.Bool("SUMMARY_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	return cfg
}

func loadStore(l *pkgconfig.Loader) StoreConfig {
	s := StoreConfig{
		DatabaseURL: l.String("DATABASE_URL", ""),
		Postgres: db.PostgresParams{
			Host:     l.String("PG_HOST", ""),
			Port:     l.String("PG_PORT", "5432"),
			Database: l.String("PG_DB", "newsrelay"),
			User:     l.String("PG_USER", "postgres"),
			Password: l.String("PG_PASSWORD", ""),
		},
		SQLitePath: l.String("SQLITE_PATH", ""),
		BadgerPath: l.String("BADGER_PATH", ""),
		Guard: guard.Config{
			Attempts: l.Int("STORE_RETRY_ATTEMPTS", guard.DefaultConfig().Attempts, func(v int) error {
				return pkgconfig.ValidateIntRange(v, 1, 10)
			}),
			Delay: l.Duration("STORE_RETRY_DELAY", defaultStoreRetryWait, func(d time.Duration) error {
				return pkgconfig.ValidateDuration(d, 0, time.Minute)
			}),
		},
	}
	s.Driver = strings.ToLower(l.StringWith("STORE_DRIVER", s.derivedDriver(),
		pkgconfig.OneOf(DriverPostgres, DriverSQLite, DriverBadger, DriverMemory)))
	return s
}

// derivedDriver picks the backend from whichever connection settings are
// present: postgres, then sqlite, then badger, else memory.
func (s StoreConfig) derivedDriver() string {
	switch {
	case s.DatabaseURL != "" || s.Postgres.Host != "":
		return DriverPostgres
	case s.SQLitePath != "":
		return DriverSQLite
	case s.BadgerPath != "":
		return DriverBadger
	default:
		return DriverMemory
	}
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
