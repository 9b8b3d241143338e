package mocks

import (
	"context"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockUserGenerator is a mock implementation of the UserGenerator interface.
type MockUserGenerator struct {
	mock.Mock
}

func (m *MockUserGenerator) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	args := m.Called(ctx, req)
	info, _ := args.Get(0).(*models.UserInfo)
	return info, args.Error(1)
}

func (m *MockUserGenerator) Login(ctx context.Context, req models.LoginRequest, location string) (*models.LoginResponse, error) {
	args := m.Called(ctx, req, location)
	resp, _ := args.Get(0).(*models.LoginResponse)
	return resp, args.Error(1)
}

func (m *MockUserGenerator) Logout(ctx context.Context, sessionToken string) error {
	args := m.Called(ctx, sessionToken)
	return args.Error(0)
}

func (m *MockUserGenerator) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserGenerator) SetUserState(ctx context.Context, userID int64, state string) error {
	args := m.Called(ctx, userID, state)
	return args.Error(0)
}

func (m *MockUserGenerator) ListUsers(ctx context.Context, limit, offset int) (*models.UserList, error) {
	args := m.Called(ctx, limit, offset)
	list, _ := args.Get(0).(*models.UserList)
	return list, args.Error(1)
}
