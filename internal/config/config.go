package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StoreDriver string
	DatabaseURL string

	// Empty KafkaBrokers disables event publishing.
	KafkaBrokers     []string
	KafkaEventsTopic string

	CorrelationWindow    time.Duration
	CorrelationUnifyGrid bool
	CorrelationCacheTTL  time.Duration

	// Empty SweepSchedule disables the scheduled sweep.
	SweepSchedule   string
	SweepAlertLevel domain.RiskLevel

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	window, err := parsePositiveDuration("CORRELATION_WINDOW", "720h")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("CORRELATION_CACHE_TTL", "0s")
	if err != nil {
		return nil, err
	}

	unifyGrid, err := parseBool("CORRELATION_UNIFY_GRID", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaBrokers:     sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "healthmap-events"),

		CorrelationWindow:    window,
		CorrelationUnifyGrid: unifyGrid,
		CorrelationCacheTTL:  cacheTTL,

		SweepSchedule:   strings.TrimSpace(os.Getenv("SWEEP_SCHEDULE")),
		SweepAlertLevel: domain.RiskLevel(strings.ToUpper(sharedcfg.EnvOrDefault("SWEEP_ALERT_LEVEL", string(domain.RiskHigh)))),

		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: must be memory or postgres", cfg.StoreDriver)
	}

	if cfg.SweepAlertLevel.Rank() < 0 {
		return nil, fmt.Errorf("invalid SWEEP_ALERT_LEVEL %q", cfg.SweepAlertLevel)
	}
	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			return nil, fmt.Errorf("invalid SWEEP_SCHEDULE: %w", err)
		}
	}

	return cfg, nil
}

// PublishingEnabled reports whether Kafka brokers are configured.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// CorrelationOptions returns the analysis settings from the environment.
func (c *Config) CorrelationOptions() domain.CorrelationOptions {
	return domain.CorrelationOptions{Window: c.CorrelationWindow, UnifyGrid: c.CorrelationUnifyGrid}
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
