package models

import (
	"github.com/golang-jwt/jwt/v4"

	"github.com/foxncici/mincici/internal/store"
)

// UserProfile lives under users/{id}. Username is globally unique,
// case-insensitive, and separately indexed under usernames/{lowercased};
// the reservation and the profile field must be kept consistent by the
// profile service.
type UserProfile struct {
	Username     string          `json:"username,omitempty"`
	DisplayName  string          `json:"displayName,omitempty"`
	Bio          string          `json:"bio,omitempty"`
	PhotoURL     string          `json:"photoURL,omitempty"`
	CreatedAt    store.Timestamp `json:"createdAt"`
	IsPrivate    bool            `json:"isPrivate,omitempty"`
	ShowActivity bool            `json:"showActivity,omitempty"`
	LastActive   int64           `json:"lastActive,omitempty"`
}

// UserSummary is a profile plus its id, the shape handed to list views
// (followers, following, mutuals, conversation partners).
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	LastActive  int64  `json:"lastActive,omitempty"`
}

// Summary flattens a profile into its list form.
func (p UserProfile) Summary(id string) UserSummary {
	return UserSummary{
		ID:          id,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		LastActive:  p.LastActive,
	}
}

// UpdateProfileRequest carries profile edits. Username changes go through
// the dedicated reservation flow, not this payload.
type UpdateProfileRequest struct {
	DisplayName  *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=50"`
	Bio          *string `json:"bio,omitempty" validate:"omitempty,max=160"`
	IsPrivate    *bool   `json:"is_private,omitempty"`
	ShowActivity *bool   `json:"show_activity,omitempty"`
}

// SetUsernameRequest claims a username. Length is validated here; the
// letters/digits/underscore character rule is enforced by the profile
// service before any remote call.
type SetUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

// JwtCustomClaims are the gateway session claims minted after a Firebase ID
// token has been verified.
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
