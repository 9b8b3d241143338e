package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/models"
)

const statusPingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheSizer reports how many sessions are cached.
type CacheSizer interface {
	CachedSessions() int
}

type StatusHandler struct {
	DB       Pinger
	Sessions CacheSizer
	Version  string
	now      func() time.Time
}

func NewStatusHandler(db Pinger, sessions CacheSizer, version string) *StatusHandler {
	return &StatusHandler{
		DB:       db,
		Sessions: sessions,
		Version:  version,
		now:      time.Now,
	}
}

// Status reports server, database and session cache health. It never fails:
// an unreachable database is reported in the body.
func (h *StatusHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), statusPingTimeout)
	defer cancel()

	dbStatus := "connected"
	if err := h.DB.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Database ping failed")
		dbStatus = "error"
	}

	return c.JSON(http.StatusOK, models.StatusResponse{
		Server:    "running",
		Database:  dbStatus,
		Sessions:  h.Sessions.CachedSessions(),
		Version:   h.Version,
		Timestamp: h.now().UTC(),
	})
}
