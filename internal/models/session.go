package models

import (
	"time"
)

// Session represents an active user login session.
type Session struct {
	Token          string    `json:"token"`          // Opaque bearer token, primary key
	UserID         int64     `json:"userId"`         // The ID of the user associated with this session
	StartedAt      time.Time `json:"startedAt"`      // When the session was created, never changes
	LastActivityAt time.Time `json:"lastActivityAt"` // Last validated use of the session
	Location       string    `json:"location"`       // Fingerprint of the client address and user agent
}

// Valid reports whether the session is still usable at now. Both bounds are
// exclusive: a session exactly maxDuration old, or idle for exactly maxIdle, is expired.
func (s *Session) Valid(now time.Time, maxDuration, maxIdle time.Duration) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.StartedAt) < maxDuration && now.Sub(s.LastActivityAt) < maxIdle
}

type SessionInfo struct {
	UserID         int64     `json:"userId"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	Location       string    `json:"location"`
}
