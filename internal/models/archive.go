package models

import "time"

// ArchivedPost is the MongoDB mirror of a post, maintained best-effort by
// the post service for search and history. The live tree store remains the
// source of truth; the archive is a derived index and may lag behind it.
type ArchivedPost struct {
	PostID      string    `json:"post_id" bson:"post_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Username    string    `json:"username" bson:"username"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	Content     string    `json:"content" bson:"content"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	ArchivedAt  time.Time `json:"archived_at" bson:"archived_at"`
}
