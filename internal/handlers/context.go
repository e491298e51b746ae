package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
)

// currentUser pulls the authenticated JWT claims set by the auth
// middleware. Nil when the route is somehow reached unauthenticated.
func currentUser(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get("user").(*models.JwtCustomClaims)
	return claims
}

// resolveActor loads the caller's profile and flattens it into the
// denormalized actor identity that gets stamped onto posts, comments, and
// notifications.
func resolveActor(ctx context.Context, c echo.Context, profiles *services.ProfileService) (live.ActorProfile, error) {
	claims := currentUser(c)
	if claims == nil {
		return live.ActorProfile{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	profile, _, err := profiles.Get(ctx, claims.UserID)
	if err != nil {
		return live.ActorProfile{}, serviceError(err)
	}
	return live.ActorProfile{
		ID:          claims.UserID,
		Email:       claims.Email,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
	}, nil
}

// serviceError maps service-level sentinel errors onto HTTP status codes.
func serviceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrEmptyPost),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrSelfTarget),
		errors.Is(err, services.ErrInvalidUsername),
		errors.Is(err, services.ErrPartnerRequired),
		errors.Is(err, services.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
