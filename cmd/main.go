package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/app"
	"github.com/EightfoldWitch/the-hermit/internal/config"
	"github.com/EightfoldWitch/the-hermit/internal/handlers"
	"github.com/EightfoldWitch/the-hermit/internal/logger"
	"github.com/EightfoldWitch/the-hermit/internal/router"
	"github.com/EightfoldWitch/the-hermit/internal/server"
	"github.com/EightfoldWitch/the-hermit/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close stores")
		}
	}()

	refresher := service.NewSessionRefresher(a.Sessions, cfg.Session.RefreshInterval)
	refresher.Start(ctx)

	e := server.New(a.Registry, cfg.TrustProxy)
	router.SetupUserRoutes(e, handlers.NewUserHandler(a.Users), a.Sessions)
	router.SetupAdminRoutes(e, handlers.NewAdminHandler(a.Users), a.Sessions, a.Users)
	router.SetupStatusRoutes(e, handlers.NewStatusHandler(a.UserRepo, a.Sessions, version))

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("Server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped gracefully")
}
