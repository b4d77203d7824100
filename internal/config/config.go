// Package config loads process settings from the environment, after an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Port string
	Env  string
	// LogLevel is a zap level name; empty keeps the environment's default.
	LogLevel string

	// DatabaseURL selects the Postgres store; empty runs on the in-memory store.
	DatabaseURL string
	Migrate     bool
	// RedisURL enables the shared config cache and the redis event broker.
	RedisURL string

	ChannelDefaultsFile string
	ConfigCacheTTL      time.Duration

	SyncInterval time.Duration
	SyncTimeout  time.Duration
	// SyncWorker turns the scheduled sync worker on.
	SyncWorker  bool
	HTTPTimeout time.Duration

	AuthMode       string
	AuthHMACSecret string
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup, so tests need not touch the process environment.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Port:                e.or("PORT", "8080"),
		Env:                 strings.ToLower(e.or("APP_ENV", "development")),
		LogLevel:            e.or("LOG_LEVEL", ""),
		DatabaseURL:         e.or("DATABASE_URL", ""),
		Migrate:             e.bool("DB_MIGRATE", true),
		RedisURL:            e.or("REDIS_URL", ""),
		ChannelDefaultsFile: e.or("CHANNEL_DEFAULTS_FILE", ""),
		ConfigCacheTTL:      e.duration("CONFIG_CACHE_TTL", 5*time.Minute),
		SyncInterval:        e.duration("SYNC_INTERVAL", 15*time.Minute),
		SyncTimeout:         e.duration("SYNC_TIMEOUT", 2*time.Minute),
		SyncWorker:          e.bool("SYNC_WORKER", true),
		HTTPTimeout:         e.duration("HTTP_TIMEOUT", 30*time.Second),
		AuthMode:            strings.ToLower(e.or("AUTH_MODE", "dev")),
		AuthHMACSecret:      e.or("AUTH_HMAC_SECRET", ""),
	}
	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	if cfg.AuthMode == "hmac" && cfg.AuthHMACSecret == "" {
		return Config{}, errors.New("AUTH_HMAC_SECRET is required when AUTH_MODE=hmac")
	}
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" || c.Env == "prod" }

func (c Config) Addr() string { return ":" + c.Port }

// NewLogger builds a production logger for production and a development logger otherwise.
func (c Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if c.Production() {
		zc = zap.NewProductionConfig()
	}
	if c.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) or(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.or(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) bool(key string, def bool) bool {
	v := e.or(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
