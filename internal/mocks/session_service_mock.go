package mocks

import (
	"context"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockSessionGenerator is a mock implementation of the SessionGenerator interface.
type MockSessionGenerator struct {
	mock.Mock
}

func (m *MockSessionGenerator) CreateSession(ctx context.Context, userID int64, location string) (string, error) {
	args := m.Called(ctx, userID, location)
	return args.String(0), args.Error(1)
}

func (m *MockSessionGenerator) GetSession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *MockSessionGenerator) UpdateSessionActivity(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionGenerator) DeleteSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionGenerator) DeleteUserSessions(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionGenerator) IsSessionValid(session *models.Session) bool {
	args := m.Called(session)
	return args.Bool(0)
}
