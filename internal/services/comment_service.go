package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

// commentOldestFirst orders comments chronologically, id as tiebreak.
func commentOldestFirst(a, b live.Keyed[models.Comment]) bool {
	if a.Value.Timestamp != b.Value.Timestamp {
		return a.Value.Timestamp < b.Value.Timestamp
	}
	return a.ID < b.ID
}

// CommentService owns comments/{postId} collections and keeps the post's
// denormalized comment counter in step with them.
type CommentService struct {
	store  store.Store
	views  *live.Manager
	fanout *live.Fanout
}

// NewCommentService wires the comment service.
func NewCommentService(st store.Store, views *live.Manager, fanout *live.Fanout) *CommentService {
	return &CommentService{store: st, views: views, fanout: fanout}
}

// AddComment appends a comment and bumps the post's comment counter in the
// same atomic merge, so no snapshot ever shows one without the other. The
// post author is notified unless they wrote the comment themselves.
func (s *CommentService) AddComment(ctx context.Context, actor live.ActorProfile, postID string, req models.CreateCommentRequest) (string, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return "", ErrEmptyMessage
	}

	var raw json.RawMessage
	if err := s.store.Get(ctx, "posts/"+postID, &raw); err != nil {
		return "", err
	}
	post, ok := live.MaterializeOne[models.Post](raw)
	if !ok {
		return "", ErrNotFound
	}

	id := s.store.PushKey("comments/" + postID)
	comment := models.Comment{
		UserID:          actor.ID,
		Username:        actor.Username,
		DisplayName:     actor.DisplayName,
		PhotoURL:        actor.PhotoURL,
		Content:         content,
		ReplyTo:         req.ReplyTo,
		ReplyToUsername: req.ReplyToUsername,
	}
	err := s.store.Merge(ctx, map[string]any{
		"comments/" + postID + "/" + id:      comment,
		"posts/" + postID + "/commentsCount": post.CommentsCount + 1,
	})
	if err != nil {
		return "", err
	}

	s.fanout.Go(live.Notice{
		RecipientID:    post.UserID,
		Type:           models.NotificationComment,
		Actor:          actor,
		PostID:         postID,
		PostContent:    post.Content,
		CommentContent: content,
	})
	return id, nil
}

// EditComment rewrites a comment's content and marks it edited, author
// only.
func (s *CommentService) EditComment(ctx context.Context, actorID, postID, commentID string, req models.UpdateCommentRequest) error {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return ErrEmptyMessage
	}
	var raw json.RawMessage
	if err := s.store.Get(ctx, "comments/"+postID+"/"+commentID, &raw); err != nil {
		return err
	}
	comment, ok := live.MaterializeOne[models.Comment](raw)
	if !ok {
		return ErrNotFound
	}
	if comment.UserID != actorID {
		return ErrForbidden
	}
	base := "comments/" + postID + "/" + commentID
	return s.store.Merge(ctx, map[string]any{
		base + "/content": content,
		base + "/edited":  true,
	})
}

// Comments returns a post's comments, oldest first.
func (s *CommentService) Comments(ctx context.Context, postID string) ([]live.Keyed[models.Comment], error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "comments/"+postID, &raw); err != nil {
		return nil, err
	}
	return live.Materialize[models.Comment](raw, commentOldestFirst, nil), nil
}

// WatchComments opens a live view over a post's comments, oldest first.
func (s *CommentService) WatchComments(postID string, onChange func([]live.Keyed[models.Comment])) (*live.View[models.Comment], error) {
	return live.Watch(s.views, "comments/"+postID, "comments:"+postID, commentOldestFirst, nil, onChange)
}
