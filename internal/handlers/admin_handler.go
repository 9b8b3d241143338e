package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
	"github.com/EightfoldWitch/the-hermit/internal/service"
)

type AdminHandler struct {
	UserService service.UserGenerator
}

func NewAdminHandler(userService service.UserGenerator) *AdminHandler {
	return &AdminHandler{UserService: userService}
}

// SetUserState changes the state of the account in the :id path parameter.
// Any state other than Active ends the account's sessions.
func (h *AdminHandler) SetUserState(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id")
	}

	var req models.SetStateRequest
	if err := c.Bind(&req); err != nil || req.State == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "State required")
	}

	if err := h.UserService.SetUserState(c.Request().Context(), userID, req.State); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUserState):
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid state")
		case errors.Is(err, repository.ErrUserNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		log.Error().Err(err).Int64("userId", userID).Str("state", req.State).Msg("Failed to change user state")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User state updated", "state": req.State})
}

// ListUsers returns a page of accounts. Paging comes from the limit and offset
// query parameters, defaulting to the first 100 users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, err := queryInt(c, "limit", service.DefaultUserListLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid offset")
	}

	list, err := h.UserService.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPaging) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid paging parameters")
		}
		log.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("Failed to list users")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve users")
	}
	return c.JSON(http.StatusOK, list)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
