package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
	"github.com/foxncici/mincici/pkg/uploader"
)

// UserHandler handles profile-related HTTP requests
type UserHandler struct {
	profiles *services.ProfileService
	images   *uploader.Cloudinary
}

// NewUserHandler creates a new UserHandler. images may be nil when no
// uploader is configured.
func NewUserHandler(profiles *services.ProfileService, images *uploader.Cloudinary) *UserHandler {
	return &UserHandler{profiles: profiles, images: images}
}

// RegisterProfileRoutes registers profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetOwnProfile)
	g.GET("/users/:id", h.GetProfile)
	g.PUT("/users/me", h.UpdateProfile)
	g.GET("/username/check", h.CheckUsername)
	g.POST("/username", h.SetUsername)
	g.POST("/users/me/photo", h.UpdatePhoto)
	g.POST("/users/me/activity", h.TouchActivity)
}

// GetOwnProfile returns the caller's full profile, settings included. The
// public summary is only for viewing other users.
func (h *UserHandler) GetOwnProfile(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	profile, ok, err := h.profiles.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return serviceError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Profile not found")
	}
	return c.JSON(http.StatusOK, profile)
}

// GetProfile returns any user's profile by id
func (h *UserHandler) GetProfile(c echo.Context) error {
	id := c.Param("id")
	profile, ok, err := h.profiles.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Profile not found")
	}
	return c.JSON(http.StatusOK, profile.Summary(id))
}

// UpdateProfile applies partial profile edits for the caller
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.profiles.Update(c.Request().Context(), claims.UserID, req); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// CheckUsername reports whether a username can be claimed by the caller
func (h *UserHandler) CheckUsername(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	username := c.QueryParam("username")
	available, err := h.profiles.CheckUsernameAvailable(c.Request().Context(), claims.UserID, username)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"available": available})
}

// SetUsername claims a username for the caller
func (h *UserHandler) SetUsername(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SetUsernameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.profiles.SetUsername(c.Request().Context(), claims.UserID, req.Username); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UpdatePhoto uploads a new avatar and fans the URL out to the caller's
// posts
func (h *UserHandler) UpdatePhoto(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if h.images == nil || !h.images.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Image uploads are not configured")
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing photo file")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable photo file")
	}
	defer file.Close()

	url, err := h.images.Upload(c.Request().Context(), fileHeader.Filename, file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	if err := h.profiles.UpdatePhoto(c.Request().Context(), claims.UserID, url); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"photoURL": url})
}

// TouchActivity records a presence heartbeat for the caller
func (h *UserHandler) TouchActivity(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.profiles.TouchActivity(c.Request().Context(), claims.UserID); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
