package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/services"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification-related routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
	g.GET("/notifications/stream", h.Stream)
	g.GET("/notifications/unread-count", h.UnreadCount)
	g.POST("/notifications/read-all", h.MarkAllRead)
	g.POST("/notifications/:id/read", h.MarkRead)
}

// List returns the caller's notifications, newest first
func (h *NotificationHandler) List(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	items, err := h.notifications.List(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// MarkRead flags one notification as read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.notifications.MarkRead(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// MarkAllRead flags every unread notification as read
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.notifications.MarkAllRead(c.Request().Context(), claims.UserID); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UnreadCount returns the caller's unread notification count
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	count, err := h.notifications.UnreadCount(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}
