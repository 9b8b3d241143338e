package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/middleware"
	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
	"github.com/EightfoldWitch/the-hermit/internal/service"
)

type UserHandler struct {
	UserService service.UserGenerator
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserGenerator) *UserHandler {
	return &UserHandler{
		UserService: userService,
	}
}

// Register creates a Pending account.
func (h *UserHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	info, err := h.UserService.Register(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields),
			errors.Is(err, service.ErrPasswordTooShort),
			errors.Is(err, service.ErrPasswordUpper),
			errors.Is(err, service.ErrPasswordLower),
			errors.Is(err, service.ErrPasswordDigit):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserExists):
			return echo.NewHTTPError(http.StatusConflict, "Username already taken")
		}
		log.Error().Err(err).Str("username", req.Username).Msg("Registration failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Registration failed")
	}

	return c.JSON(http.StatusCreated, echo.Map{"user": info})
}

// Login checks the password and opens a session for this client.
func (h *UserHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	location := service.SessionLocation(c.RealIP(), c.Request().UserAgent())
	resp, err := h.UserService.Login(c.Request().Context(), req, location)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			return echo.NewHTTPError(http.StatusBadRequest, "Username and password required")
		case errors.Is(err, service.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrUserInactive):
			return echo.NewHTTPError(http.StatusForbidden, "User account is not active")
		}
		log.Error().Err(err).Str("username", req.Username).Msg("Login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Login failed")
	}

	return c.JSON(http.StatusOK, resp)
}

// Logout ends the session used to make this call.
func (h *UserHandler) Logout(c echo.Context) error {
	if err := h.UserService.Logout(c.Request().Context(), middleware.CurrentToken(c)); err != nil {
		log.Error().Err(err).Msg("Logout failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Info returns the caller's account and current session.
func (h *UserHandler) Info(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	session, _ := middleware.CurrentSession(c)

	user, err := h.UserService.GetUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		log.Error().Err(err).Int64("userId", userID).Msg("Failed to load user info")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve user information")
	}

	resp := models.UserInfoResponse{User: user.Info()}
	if session != nil {
		resp.Session = models.SessionInfo{
			UserID:         session.UserID,
			StartedAt:      session.StartedAt,
			LastActivityAt: session.LastActivityAt,
			Location:       session.Location,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Deactivate disables the caller's own account, which ends all of its sessions.
func (h *UserHandler) Deactivate(c echo.Context) error {
	userID, _ := middleware.UserID(c)

	if err := h.UserService.SetUserState(c.Request().Context(), userID, models.UserStateDisabled); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		log.Error().Err(err).Int64("userId", userID).Msg("Failed to deactivate user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to deactivate account")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Account deactivated"})
}
