package models

import "github.com/foxncici/mincici/internal/store"

// TaggedUser is a denormalized reference to a user tagged in a post,
// snapshotted at post time.
type TaggedUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Post is a feed post as stored under posts/{id}. Author display fields are
// denormalized at write time; profile edits do not rewrite history unless an
// explicit fan-out (see ProfileService.UpdatePhoto) touches them. Likes and
// LikedBy must agree once writes settle; they may disagree transiently
// during an optimistic update.
type Post struct {
	UserID        string            `json:"userId"`
	UserEmail     string            `json:"userEmail,omitempty"`
	Username      string            `json:"username"`
	DisplayName   string            `json:"displayName"`
	PhotoURL      string            `json:"photoURL,omitempty"`
	Content       string            `json:"content"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	TaggedUsers   []TaggedUser      `json:"taggedUsers,omitempty"`
	Timestamp     store.Timestamp   `json:"timestamp"`
	Likes         int               `json:"likes"`
	LikedBy       []string          `json:"likedBy,omitempty"`
	CommentsCount int               `json:"commentsCount"`
	Reactions     map[string]string `json:"reactions,omitempty"` // userID -> reaction kind
}

// LikedByUser reports membership in the liker set.
func (p *Post) LikedByUser(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CreatePostRequest defines the payload for creating a post. A post needs
// content or an image; that is checked in the service before any remote
// call.
type CreatePostRequest struct {
	Content       string   `json:"content" validate:"max=2000"`
	ImageURL      string   `json:"image_url,omitempty" validate:"omitempty,url"`
	TaggedUserIDs []string `json:"tagged_user_ids,omitempty" validate:"omitempty,max=10,dive,required"`
}

// UpdatePostRequest defines the payload for editing a post's content.
type UpdatePostRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=2000"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// ReactRequest selects a reaction kind; reacting with the current kind
// again removes the reaction.
type ReactRequest struct {
	Kind string `json:"kind" validate:"required,oneof=heart thumbsUp laugh sad angry"`
}
