package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/services"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	follows  *services.FollowService
	profiles *services.ProfileService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(follows *services.FollowService, profiles *services.ProfileService) *FollowHandler {
	return &FollowHandler{follows: follows, profiles: profiles}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.Followers)
	g.GET("/users/:id/following", h.Following)
	g.GET("/users/me/mutuals", h.Mutuals)
	g.GET("/users/me/active-followed", h.ActiveFollowed)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}
	if err := h.follows.Follow(c.Request().Context(), actor, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.follows.Unfollow(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// Followers lists a user's followers
func (h *FollowHandler) Followers(c echo.Context) error {
	users, err := h.follows.Followers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Following lists the users a user follows
func (h *FollowHandler) Following(c echo.Context) error {
	users, err := h.follows.Following(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Mutuals lists the caller's mutual follows
func (h *FollowHandler) Mutuals(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	users, err := h.follows.Mutuals(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// ActiveFollowed lists recently active followed users
func (h *FollowHandler) ActiveFollowed(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	users, err := h.follows.ActiveFollowed(c.Request().Context(), claims.UserID, limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, users)
}
