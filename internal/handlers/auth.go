package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	profiles     *services.ProfileService
	firebaseAuth *auth.Client
	jwtSecret    string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(profiles *services.ProfileService, firebaseAuthClient *auth.Client) *AuthHandler {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "supersecretjwtkey"
	}
	return &AuthHandler{
		profiles:     profiles,
		firebaseAuth: firebaseAuthClient,
		jwtSecret:    jwtSecret,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/firebase-login", h.FirebaseLogin)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, ensures a profile exists for
// the account, and issues a local JWT for the API
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// Verify Firebase ID token
	token, err := h.firebaseAuth.VerifyIDToken(context.Background(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)

	profile, err := h.profiles.EnsureProfile(c.Request().Context(), token.UID, email)
	if err != nil {
		return serviceError(err)
	}

	localJWT, err := h.generateJWT(token.UID, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":   localJWT,
		"profile": profile,
		// The client shows username setup until one is claimed.
		"needsUsername": profile.Username == "",
	})
}

// generateJWT generates a JWT token for a verified Firebase account
func (h *AuthHandler) generateJWT(userID, email string) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)), // Token expires in 72 hours
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", err
	}
	return t, nil
}
