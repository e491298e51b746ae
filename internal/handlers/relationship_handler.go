package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
)

// RelationshipHandler handles relationship status HTTP requests
type RelationshipHandler struct {
	relationships *services.RelationshipService
	profiles      *services.ProfileService
}

// NewRelationshipHandler creates a new RelationshipHandler
func NewRelationshipHandler(relationships *services.RelationshipService, profiles *services.ProfileService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships, profiles: profiles}
}

// RegisterRelationshipRoutes registers relationship-related routes
func (h *RelationshipHandler) RegisterRelationshipRoutes(g *echo.Group) {
	g.GET("/relationship", h.Current)
	g.PUT("/relationship", h.Set)
	g.DELETE("/relationship", h.Clear)
	g.GET("/relationship/requests", h.Pending)
	g.POST("/relationship/requests/:id/accept", h.Accept)
	g.POST("/relationship/requests/:id/reject", h.Reject)
}

// Current returns the caller's relationship status
func (h *RelationshipHandler) Current(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	status, err := h.relationships.Current(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	if status == nil {
		return c.JSON(http.StatusOK, echo.Map{"status": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": status})
}

// Set replaces the caller's relationship status
func (h *RelationshipHandler) Set(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}

	var req models.SetRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.relationships.Set(c.Request().Context(), actor, req); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Clear removes the caller's relationship status
func (h *RelationshipHandler) Clear(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.relationships.Clear(c.Request().Context(), claims.UserID); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Pending lists incoming relationship requests for the caller
func (h *RelationshipHandler) Pending(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	requests, err := h.relationships.Pending(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, requests)
}

// Accept confirms an incoming relationship request
func (h *RelationshipHandler) Accept(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}
	if err := h.relationships.Accept(c.Request().Context(), actor, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Reject declines an incoming relationship request
func (h *RelationshipHandler) Reject(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.relationships.Reject(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
