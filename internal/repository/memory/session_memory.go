package memory

import (
	"context"
	"sync"
	"time"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

// MemorySessionRepository implements SessionRepository in memory (NOT FOR PRODUCTION).
type MemorySessionRepository struct {
	sessions     map[string]models.Session
	mutex        sync.RWMutex
	userSessions map[int64]map[string]struct{} // UserID -> {Token: {}}
}

// NewMemorySessionRepository creates a new in-memory session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:     make(map[string]models.Session),
		userSessions: make(map[int64]map[string]struct{}),
	}
}

var _ repository.SessionRepository = (*MemorySessionRepository)(nil)

// ReplaceSession evicts the user's sessions at the same location and stores session.
func (r *MemorySessionRepository) ReplaceSession(ctx context.Context, session *models.Session) ([]string, error) {
	if session == nil || session.Token == "" || session.UserID <= 0 {
		return nil, repository.ErrInvalidSession
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var evicted []string
	for token := range r.userSessions[session.UserID] {
		if existing, ok := r.sessions[token]; ok && existing.Location == session.Location {
			evicted = append(evicted, token)
		}
	}
	for _, token := range evicted {
		r.remove(token)
	}

	r.sessions[session.Token] = *session
	r.addUserSessionIndex(session.UserID, session.Token)
	return evicted, nil
}

// GetSession retrieves a session by its token.
func (r *MemorySessionRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, exists := r.sessions[token]
	if !exists {
		return nil, repository.ErrSessionNotFound
	}
	return &session, nil
}

// UpdateActivity moves the last activity time forward.
func (r *MemorySessionRepository) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session, exists := r.sessions[token]
	if !exists {
		return nil
	}
	if at.After(session.LastActivityAt) {
		session.LastActivityAt = at
		r.sessions[token] = session
	}
	return nil
}

// DeleteSession removes a session.
func (r *MemorySessionRepository) DeleteSession(ctx context.Context, token string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.remove(token)
	return nil
}

// DeleteUserSessions deletes all sessions for a user.
func (r *MemorySessionRepository) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tokens := make([]string, 0, len(r.userSessions[userID]))
	for token := range r.userSessions[userID] {
		tokens = append(tokens, token)
	}
	for _, token := range tokens {
		r.remove(token)
	}
	return tokens, nil
}

// ListSessions returns a snapshot of every stored session.
func (r *MemorySessionRepository) ListSessions(ctx context.Context) ([]*models.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sessions := make([]*models.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		session := session
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Len returns the number of stored sessions.
func (r *MemorySessionRepository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

// remove deletes token and its index entry. Caller must hold the write lock.
func (r *MemorySessionRepository) remove(token string) {
	session, exists := r.sessions[token]
	if !exists {
		return
	}
	delete(r.sessions, token)
	r.removeUserSessionIndex(session.UserID, token)
}

func (r *MemorySessionRepository) addUserSessionIndex(userID int64, token string) {
	if _, ok := r.userSessions[userID]; !ok {
		r.userSessions[userID] = make(map[string]struct{})
	}
	r.userSessions[userID][token] = struct{}{}
}

func (r *MemorySessionRepository) removeUserSessionIndex(userID int64, token string) {
	if userSessions, ok := r.userSessions[userID]; ok {
		delete(userSessions, token)
		if len(userSessions) == 0 {
			delete(r.userSessions, userID)
		}
	}
}
