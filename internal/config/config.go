package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultMaxSessionDuration         = 24 * time.Hour
	DefaultMinSessionActivityDuration = 30 * time.Minute
	DefaultSessionCacheRefresh        = 5 * time.Minute
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	SessionStoreSQL    = "sql"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// SessionConfig bounds session lifetime and drives the cache refresher.
type SessionConfig struct {
	// MaxDuration is the longest a session may live after it started.
	MaxDuration time.Duration
	// MaxIdle is the longest a session may go without validated use.
	// Configured as MIN_SESSION_ACTIVITY_DURATION.
	MaxIdle time.Duration
	// RefreshInterval is the period of the cache refresher.
	RefreshInterval time.Duration
	// Store selects the session store backend: sql, redis or memory.
	Store string
}

type DatabaseSettings struct {
	Driver       string
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

type Config struct {
	// Server port
	Port       string
	Env        string
	LogLevel   string
	BcryptCost int
	// TrustProxy takes the client address from X-Forwarded-For when the direct
	// peer is a private or loopback address. Off, the connection address is used.
	TrustProxy bool
	Database   DatabaseSettings
	Redis      RedisSettings
	Session    SessionConfig
}

// LoadConfig reads .env from . or ./config (if present), then the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Debug().Msg("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("MAX_SESSION_DURATION", DefaultMaxSessionDuration.Milliseconds())
	v.SetDefault("MIN_SESSION_ACTIVITY_DURATION", DefaultMinSessionActivityDuration.Milliseconds())
	v.SetDefault("SESSION_CACHE_REFRESH_INTERVAL", DefaultSessionCacheRefresh.Milliseconds())
	v.SetDefault("SESSION_STORE", SessionStoreSQL)
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:       v.GetString("APP_PORT"),
		Env:        v.GetString("APP_ENV"),
		LogLevel:   v.GetString("LOG_LEVEL"),
		BcryptCost: v.GetInt("BCRYPT_COST"),
		TrustProxy: v.GetBool("TRUST_PROXY"),
		Database: DatabaseSettings{
			Driver:       v.GetString("DATABASE_DRIVER"),
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DATABASE_MAX_IDLE_CONNS"),
		},
		Redis: RedisSettings{
			Address:  v.GetString("REDIS_ADDRESS"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			MaxDuration:     millis(v.GetInt64("MAX_SESSION_DURATION"), DefaultMaxSessionDuration),
			MaxIdle:         millis(v.GetInt64("MIN_SESSION_ACTIVITY_DURATION"), DefaultMinSessionActivityDuration),
			RefreshInterval: millis(v.GetInt64("SESSION_CACHE_REFRESH_INTERVAL"), DefaultSessionCacheRefresh),
			Store:           v.GetString("SESSION_STORE"),
		},
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.URL == "" {
			cfg.Database.URL = "file:hermit.db?_fk=1&_txlock=immediate&_busy_timeout=5000"
		}
	case DriverPostgres:
		if cfg.Database.URL == "" {
			return nil, errors.New("config: DATABASE_URL must be set for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("config: unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}

	switch cfg.Session.Store {
	case SessionStoreSQL, SessionStoreRedis, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("config: unsupported SESSION_STORE %q", cfg.Session.Store)
	}

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return cfg, nil
}

// millis converts a millisecond knob, falling back to def for non-positive values.
func millis(ms int64, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// DefaultSessionConfig returns the session bounds used when nothing is configured.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxDuration:     DefaultMaxSessionDuration,
		MaxIdle:         DefaultMinSessionActivityDuration,
		RefreshInterval: DefaultSessionCacheRefresh,
		Store:           SessionStoreSQL,
	}
}
