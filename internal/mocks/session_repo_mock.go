package mocks

import (
	"context"
	"time"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock implementation of the SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

// ReplaceSession provides a mock function for evicting and storing a session.
func (m *MockSessionRepository) ReplaceSession(ctx context.Context, session *models.Session) ([]string, error) {
	args := m.Called(ctx, session)
	evicted, _ := args.Get(0).([]string)
	return evicted, args.Error(1)
}

// GetSession provides a mock function for retrieving a session.
func (m *MockSessionRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	session, _ := args.Get(0).(*models.Session) // Handle nil case if Get(0) is not *models.Session
	return session, args.Error(1)
}

// UpdateActivity provides a mock function for touching a session.
func (m *MockSessionRepository) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	args := m.Called(ctx, token, at)
	return args.Error(0)
}

// DeleteSession provides a mock function for deleting a session.
func (m *MockSessionRepository) DeleteSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// DeleteUserSessions provides a mock function for deleting all sessions for a user.
func (m *MockSessionRepository) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	tokens, _ := args.Get(0).([]string)
	return tokens, args.Error(1)
}

// ListSessions provides a mock function for scanning all sessions.
func (m *MockSessionRepository) ListSessions(ctx context.Context) ([]*models.Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]*models.Session)
	return sessions, args.Error(1)
}
