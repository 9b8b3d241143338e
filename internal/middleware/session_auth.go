package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
	"github.com/EightfoldWitch/the-hermit/internal/service"
)

// Keys under which RequireAuth stores the caller in the echo context.
const (
	ContextKeyUserID       = "userId"
	ContextKeySession      = "session"
	ContextKeySessionToken = "sessionToken"
)

const (
	sessionTokenHeader = "X-Session-Token"
	sessionTokenQuery  = "session_token"

	maxTokenBodyBytes = 64 << 10
)

const (
	msgTokenRequired  = "Session token required"
	msgInvalidSession = "Invalid or expired session"
	msgAuthError      = "Authentication error"
	msgAdminRequired  = "Admin access required"
	msgAuthzError     = "Authorization error"
)

// UserLookup resolves the account behind an authenticated session.
type UserLookup interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// SessionToken extracts the session token from the request: a Bearer
// Authorization header, then X-Session-Token, then the session_token query
// parameter, then a session_token field in a JSON or form body.
func SessionToken(c echo.Context) string {
	req := c.Request()
	if authHeader := req.Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	if token := req.Header.Get(sessionTokenHeader); token != "" {
		return token
	}
	if token := c.QueryParam(sessionTokenQuery); token != "" {
		return token
	}
	return bodySessionToken(c)
}

// bodySessionToken reads session_token from the request body and puts the body
// back so handlers can still bind it.
func bodySessionToken(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}

	contentType := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(contentType, echo.MIMEApplicationJSON):
		buf, err := io.ReadAll(io.LimitReader(req.Body, maxTokenBodyBytes))
		req.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), req.Body), req.Body}
		if err != nil || len(buf) == maxTokenBodyBytes {
			return ""
		}
		var body struct {
			SessionToken string `json:"session_token"`
		}
		if err := json.Unmarshal(buf, &body); err != nil {
			return ""
		}
		return body.SessionToken
	case strings.HasPrefix(contentType, echo.MIMEApplicationForm):
		return c.FormValue(sessionTokenQuery)
	}
	return ""
}

// RequireAuth validates the session token, marks the session as used and stores
// the caller in the context. Absent and expired sessions are reported alike.
func RequireAuth(sessions service.SessionGenerator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := SessionToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenRequired)
			}

			ctx := c.Request().Context()
			session, err := sessions.GetSession(ctx, token)
			if err != nil {
				log.Error().Err(err).Msg("Failed to validate session")
				return echo.NewHTTPError(http.StatusInternalServerError, msgAuthError)
			}
			if session == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidSession)
			}

			if err := sessions.UpdateSessionActivity(ctx, token); err != nil {
				log.Error().Err(err).Int64("userId", session.UserID).Msg("Failed to update session activity")
				return echo.NewHTTPError(http.StatusInternalServerError, msgAuthError)
			}

			c.Set(ContextKeyUserID, session.UserID)
			c.Set(ContextKeySession, session)
			c.Set(ContextKeySessionToken, token)
			return next(c)
		}
	}
}

// RequireAdmin rejects callers whose account is not an admin. It must run after RequireAuth.
func RequireAdmin(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := UserID(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenRequired)
			}

			user, err := users.GetUser(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusForbidden, msgAdminRequired)
				}
				log.Error().Err(err).Int64("userId", userID).Msg("Failed to load user for admin check")
				return echo.NewHTTPError(http.StatusInternalServerError, msgAuthzError)
			}
			if user.Role != models.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, msgAdminRequired)
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user stored by RequireAuth.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(ContextKeyUserID).(int64)
	return id, ok
}

// CurrentSession returns the session stored by RequireAuth.
func CurrentSession(c echo.Context) (*models.Session, bool) {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	return session, ok && session != nil
}

// CurrentToken returns the session token stored by RequireAuth.
func CurrentToken(c echo.Context) string {
	token, _ := c.Get(ContextKeySessionToken).(string)
	return token
}
