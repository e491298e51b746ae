package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/repositories"
	"github.com/foxncici/mincici/internal/store"
)

// postNewestFirst orders posts by timestamp descending, id as tiebreak so
// the order is stable across snapshots.
func postNewestFirst(a, b live.Keyed[models.Post]) bool {
	if a.Value.Timestamp != b.Value.Timestamp {
		return a.Value.Timestamp > b.Value.Timestamp
	}
	return a.ID > b.ID
}

// PostService owns the posts collection: creation, edits, likes, reactions,
// and the live feed views over it. Every created post is mirrored into the
// archive best-effort; archive failures are logged, never surfaced.
type PostService struct {
	store    store.Store
	views    *live.Manager
	fanout   *live.Fanout
	profiles *ProfileService
	archive  repositories.PostArchive
}

// NewPostService wires the post service. archive may be nil to disable
// mirroring.
func NewPostService(st store.Store, views *live.Manager, fanout *live.Fanout, profiles *ProfileService, archive repositories.PostArchive) *PostService {
	return &PostService{store: st, views: views, fanout: fanout, profiles: profiles, archive: archive}
}

// CreatePost validates and writes a new post under a fresh push key,
// stamping the actor's denormalized display fields and resolving tagged
// users. Returns the new post id.
func (s *PostService) CreatePost(ctx context.Context, actor live.ActorProfile, req models.CreatePostRequest) (string, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		return "", ErrEmptyPost
	}

	var tagged []models.TaggedUser
	for _, id := range req.TaggedUserIDs {
		if id == actor.ID {
			continue
		}
		profile, ok, err := s.profiles.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		tagged = append(tagged, models.TaggedUser{
			ID:          id,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
		})
	}

	id := s.store.PushKey("posts")
	post := models.Post{
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		Username:    actor.Username,
		DisplayName: actor.DisplayName,
		PhotoURL:    actor.PhotoURL,
		Content:     content,
		ImageURL:    req.ImageURL,
		TaggedUsers: tagged,
		LikedBy:     []string{},
	}
	if err := s.store.Write(ctx, "posts/"+id, post); err != nil {
		return "", err
	}
	s.archiveUpsert(id, post, time.Now())
	return id, nil
}

// GetPost reads one post. ok is false when the post does not exist.
func (s *PostService) GetPost(ctx context.Context, postID string) (models.Post, bool, error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "posts/"+postID, &raw); err != nil {
		return models.Post{}, false, err
	}
	p, ok := live.MaterializeOne[models.Post](raw)
	return p, ok, nil
}

// Feed returns every post, newest first.
func (s *PostService) Feed(ctx context.Context) ([]live.Keyed[models.Post], error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "posts", &raw); err != nil {
		return nil, err
	}
	return live.Materialize[models.Post](raw, postNewestFirst, nil), nil
}

// UserPosts returns one author's posts, newest first.
func (s *PostService) UserPosts(ctx context.Context, userID string) ([]live.Keyed[models.Post], error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "posts", &raw); err != nil {
		return nil, err
	}
	return live.Materialize[models.Post](raw, postNewestFirst, func(k live.Keyed[models.Post]) bool {
		return k.Value.UserID == userID
	}), nil
}

// WatchFeed opens a live view over the whole feed, newest first.
func (s *PostService) WatchFeed(onChange func([]live.Keyed[models.Post])) (*live.View[models.Post], error) {
	return live.Watch(s.views, "posts", "feed", postNewestFirst, nil, onChange)
}

// WatchUserPosts opens a live view over one author's posts.
func (s *PostService) WatchUserPosts(userID string, onChange func([]live.Keyed[models.Post])) (*live.View[models.Post], error) {
	keep := func(k live.Keyed[models.Post]) bool { return k.Value.UserID == userID }
	return live.Watch(s.views, "posts", "user-posts:"+userID, postNewestFirst, keep, onChange)
}

// EditPost updates a post's content, author only. Content is trimmed
// before the emptiness check, the same as on create, so an all-whitespace
// update cannot blank a post that has no image.
func (s *PostService) EditPost(ctx context.Context, actorID, postID string, req models.UpdatePostRequest) error {
	post, ok, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if post.UserID != actorID {
		return ErrForbidden
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" && post.ImageURL == "" {
		return ErrEmptyPost
	}
	updates := map[string]any{
		"posts/" + postID + "/content": content,
	}
	if req.ImageURL != "" {
		updates["posts/"+postID+"/imageUrl"] = req.ImageURL
	}
	if err := s.store.Merge(ctx, updates); err != nil {
		return err
	}
	post.Content = content
	if req.ImageURL != "" {
		post.ImageURL = req.ImageURL
	}
	s.archiveUpsert(postID, post, time.Unix(0, int64(post.Timestamp)*int64(time.Millisecond)))
	return nil
}

// DeletePost removes a post, author only. Comments and notifications that
// reference it are left in place; readers tolerate the dangling reference.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID string) error {
	post, ok, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if post.UserID != actorID {
		return ErrForbidden
	}
	if err := s.store.Write(ctx, "posts/"+postID, nil); err != nil {
		return err
	}
	if s.archive != nil {
		go func() {
			if err := s.archive.Remove(context.Background(), postID); err != nil {
				log.Printf("archive remove for post %s failed: %v", postID, err)
			}
		}()
	}
	return nil
}

// toggleLike flips userID's membership in the liker set and keeps the
// counter equal to the set size. The slice is copied, never aliased, so an
// optimistic rollback still holds the pre-mutation membership.
func toggleLike(p models.Post, userID string) (models.Post, bool) {
	liked := false
	next := make([]string, 0, len(p.LikedBy)+1)
	for _, id := range p.LikedBy {
		if id == userID {
			liked = true
			continue
		}
		next = append(next, id)
	}
	if !liked {
		next = append(next, userID)
	}
	p.LikedBy = next
	p.Likes = len(next)
	return p, !liked
}

// ToggleLike flips the actor's like on a post in one atomic merge of the
// counter and the liker set. Only the false-to-true transition notifies the
// author; unliking is silent.
func (s *PostService) ToggleLike(ctx context.Context, actor live.ActorProfile, postID string) (bool, error) {
	post, ok, err := s.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotFound
	}
	updated, liked := toggleLike(post, actor.ID)
	err = s.store.Merge(ctx, map[string]any{
		"posts/" + postID + "/likes":   updated.Likes,
		"posts/" + postID + "/likedBy": updated.LikedBy,
	})
	if err != nil {
		return false, err
	}
	if liked {
		s.fanout.Go(live.Notice{
			RecipientID: post.UserID,
			Type:        models.NotificationLike,
			Actor:       actor,
			PostID:      postID,
			PostContent: post.Content,
		})
	}
	return liked, nil
}

// React sets the actor's reaction on a post, or clears it when kind matches
// the current one.
func (s *PostService) React(ctx context.Context, actor live.ActorProfile, postID, kind string) error {
	post, ok, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	path := "posts/" + postID + "/reactions/" + actor.ID
	if post.Reactions[actor.ID] == kind {
		return s.store.Write(ctx, path, nil)
	}
	return s.store.Write(ctx, path, kind)
}

// SearchArchive runs a content search over the post archive.
func (s *PostService) SearchArchive(ctx context.Context, query string, skip, limit int64) ([]models.ArchivedPost, error) {
	if s.archive == nil {
		return []models.ArchivedPost{}, nil
	}
	return s.archive.Search(ctx, query, skip, limit)
}

// UserArchive lists one author's archived posts.
func (s *PostService) UserArchive(ctx context.Context, userID string, skip, limit int64) ([]models.ArchivedPost, error) {
	if s.archive == nil {
		return []models.ArchivedPost{}, nil
	}
	return s.archive.ByUser(ctx, userID, skip, limit)
}

func (s *PostService) archiveUpsert(postID string, post models.Post, createdAt time.Time) {
	if s.archive == nil {
		return
	}
	record := models.ArchivedPost{
		PostID:      postID,
		UserID:      post.UserID,
		Username:    post.Username,
		DisplayName: post.DisplayName,
		Content:     post.Content,
		ImageURL:    post.ImageURL,
		CreatedAt:   createdAt,
		ArchivedAt:  time.Now(),
	}
	go func() {
		if err := s.archive.Upsert(context.Background(), record); err != nil {
			log.Printf("archive upsert for post %s failed: %v", postID, err)
		}
	}()
}
