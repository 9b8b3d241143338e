package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EightfoldWitch/the-hermit/internal/logger"
)

// SessionRefresher periodically reconciles the session cache with the store.
// It is owned by the process: Start once at boot, Stop at shutdown.
type SessionRefresher struct {
	refresher CacheRefresher
	interval  time.Duration
	logger    zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionRefresher creates a refresher that calls refresher every interval.
func NewSessionRefresher(refresher CacheRefresher, interval time.Duration) *SessionRefresher {
	return &SessionRefresher{
		refresher: refresher,
		interval:  interval,
		logger:    logger.Component("session_refresher"),
	}
}

// Start runs one refresh pass right away, so the cache is warm before the first
// request, then keeps refreshing in the background until ctx ends or Stop is called.
// Calling Start on a running refresher does nothing.
func (r *SessionRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	r.tick(ctx)
	go r.run(ctx, r.done)

	r.logger.Info().Dur("interval", r.interval).Msg("Session cache refresh started")
}

// Stop cancels the background loop and waits for an in-flight pass to finish.
func (r *SessionRefresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info().Msg("Session cache refresh stopped")
}

func (r *SessionRefresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one pass. Failures are logged and never stop the loop.
func (r *SessionRefresher) tick(ctx context.Context) {
	if err := r.refresher.RefreshCache(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error().Err(err).Msg("Session cache refresh failed")
	}
}
