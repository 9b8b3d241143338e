package router

import (
	"github.com/labstack/echo/v4"

	"github.com/EightfoldWitch/the-hermit/internal/handlers"
	"github.com/EightfoldWitch/the-hermit/internal/middleware"
	"github.com/EightfoldWitch/the-hermit/internal/service"
)

func SetupUserRoutes(e *echo.Echo, userHandler *handlers.UserHandler, sessions service.SessionGenerator) {
	auth := middleware.RequireAuth(sessions)

	api := e.Group("/users")
	api.POST("/register", userHandler.Register)
	api.POST("/login", userHandler.Login)
	api.POST("/logout", userHandler.Logout, auth)
	api.GET("/info", userHandler.Info, auth)
	api.POST("/deactivate", userHandler.Deactivate, auth)
}

// SetupAdminRoutes mounts the admin API. Every route requires a live session
// of a user with the admin role.
func SetupAdminRoutes(e *echo.Echo, adminHandler *handlers.AdminHandler, sessions service.SessionGenerator, users middleware.UserLookup) {
	requireAdmin := []echo.MiddlewareFunc{middleware.RequireAuth(sessions), middleware.RequireAdmin(users)}

	e.GET("/users/list", adminHandler.ListUsers, requireAdmin...)

	admin := e.Group("/admin", requireAdmin...)
	admin.POST("/users/:id/disable", adminHandler.SetUserState)
}

func SetupStatusRoutes(e *echo.Echo, statusHandler *handlers.StatusHandler) {
	e.GET("/status", statusHandler.Status)
}
