package repository

import (
	"context"
	"errors"
	"time"

	"github.com/EightfoldWitch/the-hermit/internal/models"
)

// ErrSessionNotFound is returned when a session token is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidSession is returned when a session is missing its token or user.
var ErrInvalidSession = errors.New("invalid session data: Token and UserID must be set")

// SessionRepository is the durable, authoritative store of login sessions.
// Implementations do not judge expiry; that is the caller's job.
type SessionRepository interface {
	// ReplaceSession deletes every session sharing session's UserID and Location and
	// inserts session, as a single atomic step. It returns the tokens it removed.
	// Stores that know the user table may return ErrUserNotFound.
	ReplaceSession(ctx context.Context, session *models.Session) (evicted []string, err error)
	// GetSession retrieves a session by its token.
	// It returns ErrSessionNotFound if the session doesn't exist.
	GetSession(ctx context.Context, token string) (*models.Session, error)
	// UpdateActivity moves LastActivityAt forward to at. Unknown tokens are ignored.
	UpdateActivity(ctx context.Context, token string, at time.Time) error
	// DeleteSession removes a session. Deleting an unknown token is not an error.
	DeleteSession(ctx context.Context, token string) error
	// DeleteUserSessions removes all sessions of a user and returns their tokens.
	DeleteUserSessions(ctx context.Context, userID int64) ([]string, error)
	// ListSessions returns every stored session.
	ListSessions(ctx context.Context) ([]*models.Session, error)
}
