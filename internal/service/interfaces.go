package service

import (
	"context"

	"github.com/EightfoldWitch/the-hermit/internal/models"
)

// SessionGenerator is the session lifecycle used by the HTTP layer.
type SessionGenerator interface {
	// CreateSession starts a session for userID, superseding any session the user
	// holds at the same location, and returns its token.
	CreateSession(ctx context.Context, userID int64, location string) (string, error)
	// GetSession returns the live session for token, or nil when the token is
	// unknown or expired. Errors are reserved for store failures.
	GetSession(ctx context.Context, token string) (*models.Session, error)
	// UpdateSessionActivity marks token as used now. Unknown tokens are ignored.
	UpdateSessionActivity(ctx context.Context, token string) error
	// DeleteSession ends a session. Deleting an unknown token is not an error.
	DeleteSession(ctx context.Context, token string) error
	// DeleteUserSessions ends every session of userID and returns how many were removed.
	DeleteUserSessions(ctx context.Context, userID int64) (int, error)
	// IsSessionValid applies the lifetime and idle bounds to session at the current time.
	IsSessionValid(session *models.Session) bool
}

// CacheRefresher reconciles the session cache with the store.
type CacheRefresher interface {
	RefreshCache(ctx context.Context) error
}

// UserGenerator handles accounts and password login.
type UserGenerator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error)
	Login(ctx context.Context, req models.LoginRequest, location string) (*models.LoginResponse, error)
	Logout(ctx context.Context, sessionToken string) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	SetUserState(ctx context.Context, userID int64, state string) error
	ListUsers(ctx context.Context, limit, offset int) (*models.UserList, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}
