package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/EightfoldWitch/the-hermit/internal/cache"
	"github.com/EightfoldWitch/the-hermit/internal/config"
	"github.com/EightfoldWitch/the-hermit/internal/metrics"
	"github.com/EightfoldWitch/the-hermit/internal/mocks"
	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
	"github.com/EightfoldWitch/the-hermit/internal/repository/memory"
)

const (
	testUserID      = int64(1)
	testOtherUserID = int64(2)
	testLocation    = "10.0.0.1:deck-app/1.0"
	testLocationB   = "10.0.0.2:deck-app/1.0"
	testMaxDuration = time.Hour
	testMaxIdle     = 30 * time.Minute
	genericErrMsg   = "a generic error occurred"
)

var testStart = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable time source shared by the service under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sessionServiceTestDeps holds common dependencies for SessionService tests
type sessionServiceTestDeps struct {
	repo    *memory.MemorySessionRepository
	cache   *cache.SessionCache
	clock   *fakeClock
	service *SessionService
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		MaxDuration:     testMaxDuration,
		MaxIdle:         testMaxIdle,
		RefreshInterval: time.Minute,
		Store:           config.SessionStoreMemory,
	}
}

// setupSessionServiceTest wires a SessionService over the in-memory store and a fake clock.
func setupSessionServiceTest(t *testing.T) sessionServiceTestDeps {
	t.Helper()
	deps := sessionServiceTestDeps{
		repo:  memory.NewMemorySessionRepository(),
		cache: cache.NewSessionCache(),
		clock: &fakeClock{now: testStart},
	}
	deps.service = NewSessionService(deps.repo, deps.cache, testSessionConfig(), WithClock(deps.clock.Now))
	return deps
}

// setupMockSessionServiceTest wires a SessionService over a mocked store.
func setupMockSessionServiceTest(t *testing.T) (*mocks.MockSessionRepository, *cache.SessionCache, *SessionService) {
	t.Helper()
	repo := new(mocks.MockSessionRepository)
	c := cache.NewSessionCache()
	clock := &fakeClock{now: testStart}
	return repo, c, NewSessionService(repo, c, testSessionConfig(), WithClock(clock.Now))
}

func TestSessionService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_CreateThenGet", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)
		assert.Len(t, token, 2*sessionTokenBytes)

		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, token, session.Token)
		assert.Equal(t, testUserID, session.UserID)
		assert.Equal(t, testLocation, session.Location)
		assert.True(t, session.StartedAt.Equal(testStart))
		assert.True(t, session.LastActivityAt.Equal(testStart))
		assert.Equal(t, 1, deps.service.CachedSessions())
	})

	t.Run("Success_TokensAreUnique", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		seen := make(map[string]struct{})
		for i := 0; i < 50; i++ {
			token, err := deps.service.CreateSession(ctx, testUserID, fmt.Sprintf("10.0.0.%d:deck-app/1.0", i))
			require.NoError(t, err)
			_, dup := seen[token]
			require.False(t, dup, "duplicate token issued")
			seen[token] = struct{}{}
		}
	})

	t.Run("Success_SameLocationSupersedes", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		first, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)
		second, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		old, err := deps.service.GetSession(ctx, first)
		require.NoError(t, err)
		assert.Nil(t, old, "superseded session must not resolve")

		current, err := deps.service.GetSession(ctx, second)
		require.NoError(t, err)
		assert.NotNil(t, current)
		assert.Equal(t, 1, deps.repo.Len())
	})

	t.Run("Success_OtherLocationsAndUsersUntouched", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		phone, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)
		laptop, err := deps.service.CreateSession(ctx, testUserID, testLocationB)
		require.NoError(t, err)
		other, err := deps.service.CreateSession(ctx, testOtherUserID, testLocation)
		require.NoError(t, err)

		for _, token := range []string{phone, laptop, other} {
			session, err := deps.service.GetSession(ctx, token)
			require.NoError(t, err)
			assert.NotNil(t, session)
		}
		assert.Equal(t, 3, deps.repo.Len())
	})

	t.Run("Error_InvalidUser", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		token, err := deps.service.CreateSession(ctx, 0, testLocation)
		assert.ErrorIs(t, err, repository.ErrInvalidSession)
		assert.Empty(t, token)
	})

	t.Run("Error_StoreFailure", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		repo.On("ReplaceSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil, errors.New(genericErrMsg)).Once()

		token, err := svc.CreateSession(ctx, testUserID, testLocation)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Contains(t, err.Error(), genericErrMsg)
		assert.Empty(t, token)
		assert.Equal(t, 0, c.Size())
		repo.AssertExpectations(t)
	})

	t.Run("Success_EvictedTokensLeaveCache", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		c.Set(models.Session{Token: "old-token", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart, Location: testLocation})
		repo.On("ReplaceSession", ctx, mock.AnythingOfType("*models.Session")).Return([]string{"old-token"}, nil).Once()

		token, err := svc.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		_, ok := c.Get("old-token")
		assert.False(t, ok)
		_, ok = c.Get(token)
		assert.True(t, ok)
		repo.AssertExpectations(t)
	})
}

func TestSessionService_Validity(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_JustInsideIdleBound", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		deps.clock.Advance(testMaxIdle - time.Nanosecond)
		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		assert.NotNil(t, session)
	})

	t.Run("Expired_ExactlyAtIdleBound", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		deps.clock.Advance(testMaxIdle)
		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Equal(t, 0, deps.repo.Len(), "expired row should be deleted from the store")
		assert.Equal(t, 0, deps.service.CachedSessions())
	})

	t.Run("Success_TouchExtendsIdle", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		deps.clock.Advance(20 * time.Minute)
		require.NoError(t, deps.service.UpdateSessionActivity(ctx, token))
		deps.clock.Advance(20 * time.Minute)

		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.True(t, session.LastActivityAt.Equal(testStart.Add(20*time.Minute)))
	})

	t.Run("Expired_LifetimeDespiteActivity", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		for elapsed := time.Duration(0); elapsed < testMaxDuration-10*time.Minute; elapsed += 10 * time.Minute {
			deps.clock.Advance(10 * time.Minute)
			require.NoError(t, deps.service.UpdateSessionActivity(ctx, token))
		}
		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, session)

		deps.clock.Advance(10 * time.Minute)
		session, err = deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("Expired_IsTerminal", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		deps.clock.Advance(testMaxIdle)
		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		require.Nil(t, session)

		require.NoError(t, deps.service.UpdateSessionActivity(ctx, token))
		session, err = deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("Expired_StaleCacheEntryNeverServed", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		stale := models.Session{
			Token:          "stale-token",
			UserID:         testUserID,
			StartedAt:      testStart.Add(-2 * testMaxDuration),
			LastActivityAt: testStart.Add(-2 * testMaxDuration),
			Location:       testLocation,
		}
		deps.cache.Set(stale)

		session, err := deps.service.GetSession(ctx, stale.Token)
		require.NoError(t, err)
		assert.Nil(t, session)
		_, ok := deps.cache.Get(stale.Token)
		assert.False(t, ok)
	})

	t.Run("Success_IsSessionValid", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		session := &models.Session{StartedAt: testStart, LastActivityAt: testStart}

		assert.True(t, deps.service.IsSessionValid(session))
		assert.False(t, deps.service.IsSessionValid(nil))
		deps.clock.Advance(testMaxIdle)
		assert.False(t, deps.service.IsSessionValid(session))
	})
}

func TestSessionService_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound_UnknownToken", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		session, err := deps.service.GetSession(ctx, "never-issued")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("NotFound_EmptyToken", func(t *testing.T) {
		repo, _, svc := setupMockSessionServiceTest(t)

		session, err := svc.GetSession(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, session)
		repo.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	})

	t.Run("Success_ReadThroughFillsCache", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		stored := &models.Session{Token: "db-only", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart, Location: testLocation}
		_, err := deps.repo.ReplaceSession(ctx, stored)
		require.NoError(t, err)

		session, err := deps.service.GetSession(ctx, stored.Token)
		require.NoError(t, err)
		require.NotNil(t, session)
		_, ok := deps.cache.Get(stored.Token)
		assert.True(t, ok)
	})

	t.Run("Success_CacheHitSkipsStore", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		c.Set(models.Session{Token: "cached", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart, Location: testLocation})

		session, err := svc.GetSession(ctx, "cached")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, testUserID, session.UserID)
		repo.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	})

	t.Run("Success_ReturnedCopyIsIsolated", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		session.UserID = 999

		again, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, testUserID, again.UserID)
	})

	t.Run("Error_StoreFailure", func(t *testing.T) {
		repo, _, svc := setupMockSessionServiceTest(t)
		repo.On("GetSession", ctx, "some-token").Return(nil, errors.New(genericErrMsg)).Once()

		session, err := svc.GetSession(ctx, "some-token")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Nil(t, session)
		repo.AssertExpectations(t)
	})

	t.Run("Error_ExpiredRowDeleteFails", func(t *testing.T) {
		repo, _, svc := setupMockSessionServiceTest(t)
		expired := &models.Session{Token: "old", UserID: testUserID, StartedAt: testStart.Add(-2 * testMaxDuration), LastActivityAt: testStart.Add(-2 * testMaxDuration)}
		repo.On("GetSession", ctx, "old").Return(expired, nil).Once()
		repo.On("DeleteSession", ctx, "old").Return(errors.New(genericErrMsg)).Once()

		session, err := svc.GetSession(ctx, "old")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Nil(t, session)
		repo.AssertExpectations(t)
	})
}

func TestSessionService_UpdateSessionActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_UnknownTokenIsNoop", func(t *testing.T) {
		deps := setupSessionServiceTest(t)

		require.NoError(t, deps.service.UpdateSessionActivity(ctx, "never-issued"))
		assert.Equal(t, 0, deps.repo.Len())
		assert.Equal(t, 0, deps.service.CachedSessions())
	})

	t.Run("Success_StoreAndCacheAgree", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		deps.clock.Advance(5 * time.Minute)
		require.NoError(t, deps.service.UpdateSessionActivity(ctx, token))

		stored, err := deps.repo.GetSession(ctx, token)
		require.NoError(t, err)
		cached, ok := deps.cache.Get(token)
		require.True(t, ok)
		assert.True(t, stored.LastActivityAt.Equal(cached.LastActivityAt))
		assert.True(t, stored.LastActivityAt.Equal(testStart.Add(5*time.Minute)))
	})

	t.Run("Error_StoreFailure", func(t *testing.T) {
		repo, _, svc := setupMockSessionServiceTest(t)
		repo.On("UpdateActivity", ctx, "some-token", mock.AnythingOfType("time.Time")).Return(errors.New(genericErrMsg)).Once()

		err := svc.UpdateSessionActivity(ctx, "some-token")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		repo.AssertExpectations(t)
	})
}

func TestSessionService_DeleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Idempotent", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		token, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)

		require.NoError(t, deps.service.DeleteSession(ctx, token))
		require.NoError(t, deps.service.DeleteSession(ctx, token))
		require.NoError(t, deps.service.DeleteSession(ctx, "never-issued"))

		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Equal(t, 0, deps.repo.Len())
	})

	t.Run("Error_StoreFailureStillDropsCache", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		c.Set(models.Session{Token: "cached", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart})
		repo.On("DeleteSession", ctx, "cached").Return(errors.New(genericErrMsg)).Once()

		err := svc.DeleteSession(ctx, "cached")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		_, ok := c.Get("cached")
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})
}

func TestSessionService_DeleteUserSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RemovesOnlyThatUser", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		a, err := deps.service.CreateSession(ctx, testUserID, testLocation)
		require.NoError(t, err)
		b, err := deps.service.CreateSession(ctx, testUserID, testLocationB)
		require.NoError(t, err)
		other, err := deps.service.CreateSession(ctx, testOtherUserID, testLocation)
		require.NoError(t, err)

		n, err := deps.service.DeleteUserSessions(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		for _, token := range []string{a, b} {
			session, err := deps.service.GetSession(ctx, token)
			require.NoError(t, err)
			assert.Nil(t, session)
		}
		session, err := deps.service.GetSession(ctx, other)
		require.NoError(t, err)
		assert.NotNil(t, session)
	})

	t.Run("Error_StoreFailure", func(t *testing.T) {
		repo, _, svc := setupMockSessionServiceTest(t)
		repo.On("DeleteUserSessions", ctx, testUserID).Return(nil, errors.New(genericErrMsg)).Once()

		n, err := svc.DeleteUserSessions(ctx, testUserID)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Zero(t, n)
		repo.AssertExpectations(t)
	})
}

func TestSessionService_RefreshCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ConvergesWithStore", func(t *testing.T) {
		deps := setupSessionServiceTest(t)
		live := &models.Session{Token: "live", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart, Location: testLocation}
		dead := &models.Session{Token: "dead", UserID: testOtherUserID, StartedAt: testStart.Add(-testMaxDuration), LastActivityAt: testStart.Add(-testMaxIdle), Location: testLocation}
		_, err := deps.repo.ReplaceSession(ctx, live)
		require.NoError(t, err)
		_, err = deps.repo.ReplaceSession(ctx, dead)
		require.NoError(t, err)
		deps.cache.Set(models.Session{Token: "ghost", UserID: 3, StartedAt: testStart, LastActivityAt: testStart})

		require.NoError(t, deps.service.RefreshCache(ctx))

		assert.Equal(t, 1, deps.service.CachedSessions())
		_, ok := deps.cache.Get("live")
		assert.True(t, ok)
		_, ok = deps.cache.Get("ghost")
		assert.False(t, ok, "cache entries missing from the store are dropped")
		assert.Equal(t, 1, deps.repo.Len(), "expired rows are deleted from the store")
	})

	t.Run("Error_ListFailureKeepsCache", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		c.Set(models.Session{Token: "cached", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart})
		repo.On("ListSessions", ctx).Return(nil, errors.New(genericErrMsg)).Once()

		err := svc.RefreshCache(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, 1, c.Size())
		repo.AssertExpectations(t)
	})

	t.Run("Error_ExpiredDeleteFailureKeepsCache", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		c.Set(models.Session{Token: "cached", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart})
		dead := &models.Session{Token: "dead", UserID: testUserID, StartedAt: testStart.Add(-testMaxDuration), LastActivityAt: testStart.Add(-testMaxDuration)}
		repo.On("ListSessions", ctx).Return([]*models.Session{dead}, nil).Once()
		repo.On("DeleteSession", ctx, "dead").Return(errors.New(genericErrMsg)).Once()

		err := svc.RefreshCache(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		_, ok := c.Get("cached")
		assert.True(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("Success_ConcurrentDeleteNotResurrected", func(t *testing.T) {
		repo, c, svc := setupMockSessionServiceTest(t)
		row := &models.Session{Token: "racing", UserID: testUserID, StartedAt: testStart, LastActivityAt: testStart}
		repo.On("ListSessions", ctx).Run(func(mock.Arguments) {
			// a logout lands after the scan read the row
			c.Delete("racing")
		}).Return([]*models.Session{row}, nil).Once()

		require.NoError(t, svc.RefreshCache(ctx))
		_, ok := c.Get("racing")
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})
}

func TestSessionService_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	deps := setupSessionServiceTest(t)

	tokens := make([]string, 8)
	for i := range tokens {
		token, err := deps.service.CreateSession(ctx, int64(i+1), testLocation)
		require.NoError(t, err)
		tokens[i] = token
	}

	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(3)
		go func(token string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = deps.service.GetSession(ctx, token)
			}
		}(token)
		go func(token string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = deps.service.UpdateSessionActivity(ctx, token)
			}
		}(token)
		go func(i int, token string) {
			defer wg.Done()
			if i%2 == 0 {
				_ = deps.service.DeleteSession(ctx, token)
			}
			_ = deps.service.RefreshCache(ctx)
		}(i, token)
	}
	wg.Wait()

	for i, token := range tokens {
		session, err := deps.service.GetSession(ctx, token)
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Nil(t, session, "deleted session %d came back", i)
		} else {
			assert.NotNil(t, session)
		}
	}
}

func TestSessionService_RefreshDuringActivity(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	sessionMetrics, err := metrics.NewSessionMetrics(reg)
	require.NoError(t, err)

	clock := &fakeClock{now: testStart}
	svc := NewSessionService(memory.NewMemorySessionRepository(), cache.NewSessionCache(), testSessionConfig(),
		WithClock(clock.Now), WithMetrics(sessionMetrics))

	tokens := make([]string, 6)
	for i := range tokens {
		token, err := svc.CreateSession(ctx, int64(i+1), testLocation)
		require.NoError(t, err)
		tokens[i] = token
	}

	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Advance(time.Millisecond)
				_, _ = svc.GetSession(ctx, token)
				_ = svc.UpdateSessionActivity(ctx, token)
			}
		}(token)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			assert.NoError(t, svc.RefreshCache(ctx))
		}
	}()
	wg.Wait()

	require.NoError(t, svc.RefreshCache(ctx))
	assert.Equal(t, len(tokens), svc.CachedSessions())

	families, err := reg.Gather()
	require.NoError(t, err)
	var gauge float64
	for _, f := range families {
		if f.GetName() == "hermit_session_cache_entries" {
			gauge = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(len(tokens)), gauge)
}
