package middleware

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/foxncici/mincici/internal/models"
)

// firebaseClaims verifies a Firebase ID token and maps it to the same
// claims shape the gateway JWT carries, so handlers never care which
// token form authenticated the request.
func firebaseClaims(ctx context.Context, authClient *auth.Client, idToken string) (*models.JwtCustomClaims, error) {
	token, err := authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email, _ := token.Claims["email"].(string)
	return &models.JwtCustomClaims{
		UserID: token.UID,
		Email:  email,
	}, nil
}
