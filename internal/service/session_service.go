package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EightfoldWitch/the-hermit/internal/cache"
	"github.com/EightfoldWitch/the-hermit/internal/config"
	"github.com/EightfoldWitch/the-hermit/internal/logger"
	"github.com/EightfoldWitch/the-hermit/internal/metrics"
	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

// ErrStoreUnavailable wraps every failure of the session store.
var ErrStoreUnavailable = errors.New("session store unavailable")

// SessionService owns session creation, validation, activity refresh and deletion.
// The store is authoritative; the cache only short-circuits reads.
type SessionService struct {
	sessionRepo repository.SessionRepository
	cache       *cache.SessionCache
	maxDuration time.Duration
	maxIdle     time.Duration
	now         func() time.Time
	metrics     *metrics.SessionMetrics
	logger      zerolog.Logger

	refreshMu sync.Mutex
}

var _ SessionGenerator = (*SessionService)(nil)
var _ CacheRefresher = (*SessionService)(nil)

// SessionOption customizes a SessionService.
type SessionOption func(*SessionService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithMetrics records cache and lifecycle metrics on m.
func WithMetrics(m *metrics.SessionMetrics) SessionOption {
	return func(s *SessionService) { s.metrics = m }
}

// NewSessionService creates a SessionService over sessionRepo and sessionCache.
func NewSessionService(sessionRepo repository.SessionRepository, sessionCache *cache.SessionCache, cfg config.SessionConfig, opts ...SessionOption) *SessionService {
	s := &SessionService{
		sessionRepo: sessionRepo,
		cache:       sessionCache,
		maxDuration: cfg.MaxDuration,
		maxIdle:     cfg.MaxIdle,
		now:         time.Now,
		logger:      logger.Component("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession evicts the user's sessions at location and stores a new one.
func (s *SessionService) CreateSession(ctx context.Context, userID int64, location string) (string, error) {
	if userID <= 0 {
		return "", repository.ErrInvalidSession
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	now := s.timestamp()
	session := &models.Session{
		Token:          token,
		UserID:         userID,
		StartedAt:      now,
		LastActivityAt: now,
		Location:       location,
	}

	evicted, err := s.sessionRepo.ReplaceSession(ctx, session)
	if err != nil {
		s.logger.Error().Err(err).Int64("userId", userID).Msg("Failed to store new session")
		return "", fmt.Errorf("%w: create session: %w", ErrStoreUnavailable, err)
	}
	s.evictCached(evicted)
	s.cache.Set(*session)
	s.metrics.SessionCreated(len(evicted))

	s.logger.Info().
		Int64("userId", userID).
		Str("tokenPrefix", tokenPrefix(token)).
		Int("evicted", len(evicted)).
		Msg("Session created")
	return token, nil
}

// GetSession returns the live session for token or nil. A cached entry that
// fails the validity check is never served.
func (s *SessionService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	now := s.now()

	if cached, ok := s.cache.Get(token); ok {
		if s.isValidAt(&cached, now) {
			s.metrics.CacheLookup(metrics.LookupHit)
			return &cached, nil
		}
		s.cache.Delete(token)
		s.metrics.CacheLookup(metrics.LookupStale)
	} else {
		s.metrics.CacheLookup(metrics.LookupMiss)
	}

	gen := s.cache.Generation()
	stored, err := s.sessionRepo.GetSession(ctx, token)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("tokenPrefix", tokenPrefix(token)).Msg("Failed to load session")
		return nil, fmt.Errorf("%w: get session: %w", ErrStoreUnavailable, err)
	}

	if !s.isValidAt(stored, now) {
		s.logger.Debug().Str("tokenPrefix", tokenPrefix(token)).Int64("userId", stored.UserID).Msg("Session expired, removing")
		if err := s.DeleteSession(ctx, token); err != nil {
			return nil, err
		}
		s.metrics.SessionsExpired(1)
		return nil, nil
	}

	s.cache.Fill(*stored, gen)
	return stored, nil
}

// UpdateSessionActivity sets the last activity of token to now in the store and the cache.
// It does not re-validate the session.
func (s *SessionService) UpdateSessionActivity(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	now := s.timestamp()
	if err := s.sessionRepo.UpdateActivity(ctx, token, now); err != nil {
		s.logger.Error().Err(err).Str("tokenPrefix", tokenPrefix(token)).Msg("Failed to update session activity")
		return fmt.Errorf("%w: update activity: %w", ErrStoreUnavailable, err)
	}
	s.cache.Touch(token, now)
	return nil
}

// DeleteSession removes token from the store and the cache.
func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.sessionRepo.DeleteSession(ctx, token)
	s.cache.Delete(token)
	if err != nil {
		s.logger.Error().Err(err).Str("tokenPrefix", tokenPrefix(token)).Msg("Failed to delete session")
		return fmt.Errorf("%w: delete session: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteUserSessions removes every session of userID.
func (s *SessionService) DeleteUserSessions(ctx context.Context, userID int64) (int, error) {
	tokens, err := s.sessionRepo.DeleteUserSessions(ctx, userID)
	s.evictCached(tokens)
	if err != nil {
		s.logger.Error().Err(err).Int64("userId", userID).Msg("Failed to delete user sessions")
		return 0, fmt.Errorf("%w: delete user sessions: %w", ErrStoreUnavailable, err)
	}
	s.logger.Info().Int64("userId", userID).Int("count", len(tokens)).Msg("User sessions deleted")
	return len(tokens), nil
}

// IsSessionValid reports whether session is within both the lifetime and the idle bound.
func (s *SessionService) IsSessionValid(session *models.Session) bool {
	return s.isValidAt(session, s.now())
}

// RefreshCache scans the store, deletes expired rows, and replaces the cache with
// the live ones. On failure the cache is left as it was.
func (s *SessionService) RefreshCache(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	s.cache.BeginRefresh()

	sessions, err := s.sessionRepo.ListSessions(ctx)
	if err != nil {
		s.cache.AbortRefresh()
		s.metrics.RefreshDone(metrics.RefreshError, time.Since(start).Seconds(), 0)
		return fmt.Errorf("%w: list sessions: %w", ErrStoreUnavailable, err)
	}

	now := s.now()
	fresh := make(map[string]models.Session, len(sessions))
	expired := 0
	for _, session := range sessions {
		if s.isValidAt(session, now) {
			fresh[session.Token] = *session
			continue
		}
		if err := s.sessionRepo.DeleteSession(ctx, session.Token); err != nil {
			s.cache.AbortRefresh()
			s.metrics.SessionsExpired(expired)
			s.metrics.RefreshDone(metrics.RefreshError, time.Since(start).Seconds(), 0)
			return fmt.Errorf("%w: delete expired session: %w", ErrStoreUnavailable, err)
		}
		expired++
	}

	active := s.cache.Replace(fresh)
	s.metrics.SessionsExpired(expired)
	s.metrics.RefreshDone(metrics.RefreshOK, time.Since(start).Seconds(), active)

	s.logger.Info().Int("active", active).Int("expired", expired).Msg("Session cache refreshed")
	return nil
}

// CachedSessions returns the number of sessions currently cached.
func (s *SessionService) CachedSessions() int {
	return s.cache.Size()
}

func (s *SessionService) isValidAt(session *models.Session, now time.Time) bool {
	return session.Valid(now, s.maxDuration, s.maxIdle)
}

// evictCached drops tokens removed from the store by location eviction or bulk delete.
func (s *SessionService) evictCached(tokens []string) {
	if len(tokens) > 0 {
		s.cache.DeleteAll(tokens)
	}
}

// timestamp is now at the precision every store can round-trip.
func (s *SessionService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
