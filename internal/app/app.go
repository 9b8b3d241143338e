// Package app assembles the stores and services shared by the server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/cache"
	"github.com/EightfoldWitch/the-hermit/internal/config"
	"github.com/EightfoldWitch/the-hermit/internal/database"
	"github.com/EightfoldWitch/the-hermit/internal/database/migrate"
	"github.com/EightfoldWitch/the-hermit/internal/metrics"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
	"github.com/EightfoldWitch/the-hermit/internal/repository/memory"
	redis_repo "github.com/EightfoldWitch/the-hermit/internal/repository/redis"
	sql_repo "github.com/EightfoldWitch/the-hermit/internal/repository/sql"
	"github.com/EightfoldWitch/the-hermit/internal/service"
)

type App struct {
	Config   *config.Config
	DB       *sql.DB
	Registry *prometheus.Registry
	UserRepo *sql_repo.SQLUserRepository
	Sessions *service.SessionService
	Users    *service.UserService

	redisClient *redis.Client
}

// New opens the database, applies pending migrations and builds the services.
// The session store is picked by cfg.Session.Store.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db}

	if err := migrate.Up(db, cfg.Database.Driver); err != nil {
		_ = a.Close()
		return nil, err
	}

	sessionRepo, err := a.sessionRepository(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sessionMetrics, err := metrics.NewSessionMetrics(a.Registry)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("registering session metrics: %w", err)
	}

	a.UserRepo = sql_repo.NewSQLUserRepository(db, cfg.Database.Driver)
	a.Sessions = service.NewSessionService(sessionRepo, cache.NewSessionCache(), cfg.Session, service.WithMetrics(sessionMetrics))
	a.Users = service.NewUserService(a.UserRepo, a.Sessions, service.BcryptHasher{Cost: cfg.BcryptCost})

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("sessionStore", cfg.Session.Store).
		Dur("maxDuration", cfg.Session.MaxDuration).
		Dur("maxIdle", cfg.Session.MaxIdle).
		Msg("Application initialized")
	return a, nil
}

func (a *App) sessionRepository(ctx context.Context) (repository.SessionRepository, error) {
	switch a.Config.Session.Store {
	case config.SessionStoreSQL:
		return sql_repo.NewSQLSessionRepository(a.DB, a.Config.Database.Driver), nil
	case config.SessionStoreRedis:
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Address,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		repo := redis_repo.NewRedisSessionRepository(a.redisClient, a.Config.Session.MaxDuration)
		if err := repo.Ping(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case config.SessionStoreMemory:
		log.Warn().Msg("Using in-memory session store, sessions are lost on restart")
		return memory.NewMemorySessionRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", a.Config.Session.Store)
	}
}

// Close releases the database pool and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
