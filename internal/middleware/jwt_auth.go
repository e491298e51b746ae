package middleware

import (
	"net/http"
	"os"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
)

// JWTAuthMiddleware checks the bearer token and extracts user claims. A
// gateway JWT is tried first; when authClient is non-nil a raw Firebase ID
// token is accepted as well, so clients may call the API before exchanging
// their token at the login endpoint.
func JWTAuthMiddleware(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}
			tokenString := parts[1]

			// Get JWT Secret from environment or use default
			jwtSecret := os.Getenv("JWT_SECRET")
			if jwtSecret == "" {
				jwtSecret = "supersecretjwtkey" // Must match the secret used for signing
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				if authClient == nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
				}
				// Not a gateway JWT; try it as a Firebase ID token.
				fbClaims, fbErr := firebaseClaims(c.Request().Context(), authClient, tokenString)
				if fbErr != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
				}
				claims = fbClaims
			}

			// Store user claims in context
			c.Set("user", claims)

			return next(c)
		}
	}
}
