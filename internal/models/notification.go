package models

import "github.com/foxncici/mincici/internal/store"

// Notification kinds. Each maps to a qualifying mutation: a like transition
// to true, a posted comment, a new follow, or a relationship proposal.
const (
	NotificationLike         = "like"
	NotificationComment      = "comment"
	NotificationFollow       = "follow"
	NotificationRelationship = "relationship"
)

// Notification lives under notifications/{recipientId}/{id} and is owned by
// the recipient. Actor fields are denormalized at emit time. A recipient
// never holds a notification about their own action.
type Notification struct {
	Type            string          `json:"type"`
	FromUserID      string          `json:"fromUserId"`
	FromUsername    string          `json:"fromUsername"`
	FromDisplayName string          `json:"fromDisplayName"`
	FromPhotoURL    string          `json:"fromPhotoURL,omitempty"`
	PostID          string          `json:"postId,omitempty"`
	PostContent     string          `json:"postContent,omitempty"`
	CommentContent  string          `json:"commentContent,omitempty"`
	Timestamp       store.Timestamp `json:"timestamp"`
	Read            bool            `json:"read"`
}
