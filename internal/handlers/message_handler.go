package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
)

// MessageHandler handles direct-message HTTP requests
type MessageHandler struct {
	messages *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// RegisterMessageRoutes registers message-related routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.GET("/conversations", h.Conversations)
	g.GET("/conversations/stream", h.StreamConversations)
	g.GET("/messages/unread-count", h.UnreadCount)
	g.POST("/messages/:peerId", h.Send)
	g.GET("/messages/:peerId", h.Thread)
	g.GET("/messages/:peerId/stream", h.StreamThread)
	g.POST("/messages/:peerId/read", h.MarkThreadRead)
}

// Send delivers a direct message to a peer
func (h *MessageHandler) Send(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.messages.Send(c.Request().Context(), claims.UserID, c.Param("peerId"), req.Content)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Conversations lists the caller's conversation summaries
func (h *MessageHandler) Conversations(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	conversations, err := h.messages.Conversations(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, conversations)
}

// Thread returns the transcript with one peer, oldest first
func (h *MessageHandler) Thread(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	thread, err := h.messages.Thread(c.Request().Context(), claims.UserID, c.Param("peerId"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, thread)
}

// MarkThreadRead flags every unread message from the peer as read
func (h *MessageHandler) MarkThreadRead(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.messages.MarkThreadRead(c.Request().Context(), claims.UserID, c.Param("peerId")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UnreadCount returns the caller's unread message count
func (h *MessageHandler) UnreadCount(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	count, err := h.messages.UnreadCount(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}
