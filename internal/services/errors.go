package services

import "errors"

var (
	// ErrNotFound marks a read against an id that no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a mutation against an entity the caller does not own.
	ErrForbidden = errors.New("not allowed")
	// ErrEmptyPost rejects a post with neither content nor image, before
	// any remote call.
	ErrEmptyPost = errors.New("post needs content or an image")
	// ErrEmptyMessage rejects a blank direct message.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrSelfTarget rejects follow/message/partner operations aimed at the
	// acting user.
	ErrSelfTarget = errors.New("cannot target yourself")
	// ErrUsernameTaken is returned when a reservation is lost to another
	// claimant.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUsername rejects usernames outside the allowed format.
	ErrInvalidUsername = errors.New("username must be 3+ characters: letters, digits, underscore")
	// ErrPartnerRequired rejects a partnered status without a partner.
	ErrPartnerRequired = errors.New("this relationship status requires a partner")
	// ErrInvalidStatus rejects an unknown relationship status kind.
	ErrInvalidStatus = errors.New("unknown relationship status")
)
