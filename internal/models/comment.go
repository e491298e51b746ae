package models

import "github.com/foxncici/mincici/internal/store"

// Comment lives under comments/{postId}/{id}. Author fields are
// denormalized at write time. Deleting a post does not delete its comments;
// readers must tolerate a comment whose post is gone.
type Comment struct {
	UserID          string          `json:"userId"`
	Username        string          `json:"username"`
	DisplayName     string          `json:"displayName"`
	PhotoURL        string          `json:"photoURL,omitempty"`
	Content         string          `json:"content"`
	Timestamp       store.Timestamp `json:"timestamp"`
	ReplyTo         string          `json:"replyTo,omitempty"`
	ReplyToUsername string          `json:"replyToUsername,omitempty"`
	Edited          bool            `json:"edited,omitempty"`
}

// CreateCommentRequest defines the payload for posting a comment.
type CreateCommentRequest struct {
	Content         string `json:"content" validate:"required,min=1,max=500"`
	ReplyTo         string `json:"reply_to,omitempty"`
	ReplyToUsername string `json:"reply_to_username,omitempty"`
}

// UpdateCommentRequest defines the payload for editing a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}
