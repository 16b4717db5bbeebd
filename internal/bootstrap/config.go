package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates runtime settings consumed by the Go services.
type Config struct {
	HTTP    HTTPConfig
	Log     LogConfig
	DB      DBConfig
	Auth    AuthConfig
	Payment PaymentConfig
	Escrow  EscrowConfig
	Push    PushConfig
}

// HTTPConfig stores listener and shutdown behavior.
type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LogConfig controls slog handler behavior.
type LogConfig struct {
	Level       slog.Level
	Format      string
	AddSource   bool
	Environment string
}

// DBConfig stores persistence layer settings.
type DBConfig struct {
	SQLitePath string
}

// AuthConfig controls token and password infrastructure defaults.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
	BcryptCost int
}

// PaymentConfig tunes the simulated gateway providers.
type PaymentConfig struct {
	ChargeTimeout      time.Duration
	TelebirrApprovePct int
	CBEBirrApprovePct  int
	ReplayTTL          time.Duration
}

// EscrowConfig controls the automatic release sweep.
type EscrowConfig struct {
	AutoReleaseAfter time.Duration
	ReconcileSpec    string
}

// PushConfig tunes push delivery retries.
type PushConfig struct {
	MaxRetries  int
	MaxInterval time.Duration
}

// LoadConfig loads environment variables (optionally from .env files) into Config.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetEnvPrefix("ETHIOSHOP")
	v.AutomaticEnv()

	if err := mergeDotEnvFiles(v); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.HTTP.Addr = fallback(v.GetString("HTTP_ADDR"), "0.0.0.0:8080")
	cfg.HTTP.ShutdownTimeout = parseDuration(fallback(v.GetString("SHUTDOWN_TIMEOUT"), "15s"), 15*time.Second)

	cfg.Log.Level = parseLogLevel(fallback(firstNonEmpty(
		v.GetString("LOG_LEVEL"),
		os.Getenv("LOG_LEVEL"),
	), "info"))
	cfg.Log.Format = strings.ToLower(fallback(firstNonEmpty(
		v.GetString("LOG_FORMAT"),
		os.Getenv("LOG_FORMAT"),
	), "json"))
	cfg.Log.AddSource = v.GetBool("LOG_ADD_SOURCE")
	cfg.Log.Environment = fallback(firstNonEmpty(
		v.GetString("ENV"),
		os.Getenv("APP_ENV"),
	), "development")

	cfg.DB.SQLitePath = fallback(firstNonEmpty(
		v.GetString("DB_PATH"),
		os.Getenv("ETHIOSHOP_DB_PATH"),
	), filepath.Join("data", "ethioshop.db"))

	cfg.Auth.SigningKey = fallback(firstNonEmpty(
		v.GetString("AUTH_SIGNING_KEY"),
		os.Getenv("APP_KEY"),
	), "change-me")
	cfg.Auth.TokenTTL = parseDuration(fallback(v.GetString("AUTH_TOKEN_TTL"), "24h"), 24*time.Hour)
	cfg.Auth.Issuer = fallback(v.GetString("AUTH_ISSUER"), "ethioshop")
	cfg.Auth.Audience = fallback(v.GetString("AUTH_AUDIENCE"), "ethioshop-app")
	cfg.Auth.Leeway = parseDuration(fallback(v.GetString("AUTH_LEEWAY"), "30s"), 30*time.Second)
	cfg.Auth.BcryptCost = parseBcryptCost(v)

	cfg.Payment.ChargeTimeout = parseDuration(fallback(v.GetString("PAYMENT_CHARGE_TIMEOUT"), "10s"), 10*time.Second)
	cfg.Payment.TelebirrApprovePct = parsePercent(v.GetString("PAYMENT_TELEBIRR_APPROVE_PCT"), 90)
	cfg.Payment.CBEBirrApprovePct = parsePercent(v.GetString("PAYMENT_CBE_APPROVE_PCT"), 85)
	cfg.Payment.ReplayTTL = parseDuration(fallback(v.GetString("PAYMENT_REPLAY_TTL"), "24h"), 24*time.Hour)

	cfg.Escrow.AutoReleaseAfter = parseDuration(fallback(v.GetString("ESCROW_AUTO_RELEASE_AFTER"), "72h"), 72*time.Hour)
	cfg.Escrow.ReconcileSpec = fallback(v.GetString("ESCROW_RECONCILE_SPEC"), "@every 1h")

	cfg.Push.MaxRetries = parseCount(v.GetString("PUSH_MAX_RETRIES"), 5)
	cfg.Push.MaxInterval = parseDuration(fallback(v.GetString("PUSH_MAX_INTERVAL"), "2m"), 2*time.Minute)

	return cfg, nil
}

func parseBcryptCost(v *viper.Viper) int {
	cost := v.GetInt("AUTH_BCRYPT_COST")
	if cost <= 0 {
		cost = 12
	}
	return cost
}

func parsePercent(raw string, def int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return def
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 || parsed > 100 {
		return def
	}
	return parsed
}

func parseCount(raw string, def int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return def
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func mergeDotEnvFiles(v *viper.Viper) error {
	candidates := []string{".", "..", "../.."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", file, err)
		}
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("merge %s: %w", file, err)
		}
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
