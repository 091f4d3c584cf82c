package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultCommandTimeout   = 60 * time.Second
	DefaultMaxConns         = 10
	DefaultReportCacheTTL   = 5 * time.Minute
	DefaultReportRefresh    = "@every 10m"
	DefaultReferralRates    = "0.10,0.05,0.02"
	DefaultMetricsAddr      = ""
	DefaultDatabaseSSLMode  = "disable"
	DefaultDatabaseEncoding = "UTF8"
)

var log = InitLogger()

type PostgresConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns       int
	CommandTimeout time.Duration
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&client_encoding=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
		DefaultDatabaseEncoding,
	)
}

type RedisConfig struct {
	URL string
}

type AppConfig struct {
	Postgres *PostgresConfig
	Redis    *RedisConfig

	ReferralRates     string
	ReportCacheTTL    time.Duration
	ReportRefreshSpec string
	MetricsAddr       string
	LogLevel          string
}

// InitConfig loads .env into the process environment. A missing file is not an error:
// deployments configure through real environment variables.
func InitConfig() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
	return nil
}

func LoadAppConfig() (*AppConfig, error) {
	pg, err := LoadPostgresConfig()
	if err != nil {
		return nil, err
	}

	ttl, err := getEnvAsDuration("REPORT_CACHE_TTL", DefaultReportCacheTTL)
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Postgres:          pg,
		Redis:             &RedisConfig{URL: os.Getenv("REDIS_URL")},
		ReferralRates:     getEnv("REFERRAL_RATES", DefaultReferralRates),
		ReportCacheTTL:    ttl,
		ReportRefreshSpec: getEnv("REPORT_REFRESH_SPEC", DefaultReportRefresh),
		MetricsAddr:       getEnv("METRICS_ADDR", DefaultMetricsAddr),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

func LoadPostgresConfig() (*PostgresConfig, error) {
	maxConns, err := getEnvAsInt("DB_MAX_CONNS", DefaultMaxConns)
	if err != nil {
		return nil, err
	}
	if maxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", maxConns)
	}

	timeout, err := getEnvAsDuration("DB_COMMAND_TIMEOUT", DefaultCommandTimeout)
	if err != nil {
		return nil, err
	}

	return &PostgresConfig{
		URL:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
		User:           os.Getenv("DB_USER"),
		Password:       os.Getenv("DB_PASSWORD"),
		Host:           os.Getenv("DB_HOST"),
		Port:           getEnv("DB_PORT", "5432"),
		DBName:         os.Getenv("DB_NAME"),
		SSLMode:        getEnv("DB_SSLMODE", DefaultDatabaseSSLMode),
		MaxConns:       maxConns,
		CommandTimeout: timeout,
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// Durations accept Go syntax ("45s") or a bare number of seconds ("60").
func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
