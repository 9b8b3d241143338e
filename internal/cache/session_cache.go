// Package cache holds the in-process session cache that fronts the session store.
package cache

import (
	"sync"
	"time"

	"github.com/EightfoldWitch/the-hermit/internal/models"
)

// SessionCache maps session tokens to session records. It is never authoritative:
// every entry is a copy of a store row and may be stale.
//
// Values are stored and returned by copy, so callers can never mutate a cached record.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]models.Session

	// deletes counts Delete and Clear calls; Fill refuses to write if it moved.
	deletes uint64

	// deletions made while a refresh pass is running; Replace must not bring them back.
	refreshing bool
	tombstones map[string]struct{}
	cleared    bool
}

// NewSessionCache creates an empty cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{
		sessions:   make(map[string]models.Session),
		tombstones: make(map[string]struct{}),
	}
}

// Get returns a copy of the cached session for token.
func (c *SessionCache) Get(token string) (models.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[token]
	return session, ok
}

// Set stores a copy of session under its token.
func (c *SessionCache) Set(session models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.Token] = session
	delete(c.tombstones, session.Token)
}

// Generation returns a marker to pass to Fill.
func (c *SessionCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deletes
}

// Fill stores session only if nothing was deleted since gen was taken. It is
// meant for read-through fills, where a concurrent delete must win.
func (c *SessionCache) Fill(session models.Session, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deletes != gen {
		return false
	}
	c.sessions[session.Token] = session
	return true
}

// Delete removes token. It reports whether an entry was present.
func (c *SessionCache) Delete(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteLocked(token)
}

// DeleteAll removes every token in tokens.
func (c *SessionCache) DeleteAll(tokens []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, token := range tokens {
		c.deleteLocked(token)
	}
}

// Touch moves the cached LastActivityAt of token forward to at.
// It does nothing when token is not cached.
func (c *SessionCache) Touch(token string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[token]
	if !ok || !at.After(session.LastActivityAt) {
		return
	}
	session.LastActivityAt = at
	c.sessions[token] = session
}

// Clear drops every entry. Pending fills are cancelled, and a refresh pass
// running across the Clear installs nothing.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = make(map[string]models.Session)
	c.deletes++
	if c.refreshing {
		c.cleared = true
	}
}

// Size returns the number of cached sessions.
func (c *SessionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// BeginRefresh marks the start of a refresh pass. Tokens deleted from now until
// the matching Replace are kept out of the replacement set.
func (c *SessionCache) BeginRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = true
	c.cleared = false
	c.tombstones = make(map[string]struct{})
}

// AbortRefresh ends a refresh pass without touching the cached entries.
func (c *SessionCache) AbortRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false
	c.cleared = false
	c.tombstones = make(map[string]struct{})
}

// Replace swaps the whole cache for fresh in one step, ends any refresh pass and
// returns the number of entries installed. The cache takes ownership of fresh,
// so callers must not touch it afterwards.
func (c *SessionCache) Replace(fresh map[string]models.Session) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleared {
		fresh = make(map[string]models.Session)
	}
	for token := range c.tombstones {
		delete(fresh, token)
	}
	c.sessions = fresh
	c.refreshing = false
	c.cleared = false
	c.tombstones = make(map[string]struct{})
	return len(fresh)
}

func (c *SessionCache) deleteLocked(token string) bool {
	_, ok := c.sessions[token]
	delete(c.sessions, token)
	c.deletes++
	if c.refreshing {
		c.tombstones[token] = struct{}{}
	}
	return ok
}
