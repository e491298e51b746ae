package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	comments *services.CommentService
	profiles *services.ProfileService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService, profiles *services.ProfileService) *CommentHandler {
	return &CommentHandler{comments: comments, profiles: profiles}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.AddComment)
	g.GET("/posts/:id/comments", h.Comments)
	g.PUT("/posts/:id/comments/:commentId", h.EditComment)
}

// AddComment posts a comment on a post
func (h *CommentHandler) AddComment(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.comments.AddComment(c.Request().Context(), actor, c.Param("id"), req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Comments lists a post's comments, oldest first
func (h *CommentHandler) Comments(c echo.Context) error {
	comments, err := h.comments.Comments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

// EditComment rewrites a comment, author only
func (h *CommentHandler) EditComment(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.comments.EditComment(c.Request().Context(), claims.UserID, c.Param("id"), c.Param("commentId"), req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
