package services

import (
	"context"
	"encoding/json"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
)

// PostView is the live, optimistically mutable view of a single post: the
// shape an open post detail screen binds to. Server snapshots reconcile the
// local copy; ToggleLike and React mutate it locally first and roll back if
// the write fails. Close tears down both halves; callbacks landing after
// Close are dropped.
type PostView struct {
	svc    *PostService
	postID string
	state  *live.Coordinator[models.Post]
	handle *live.Handle
}

// NewPostView opens a view over one post. onChange observes every state the
// screen should render, including optimistic intermediates, and may be nil.
func (s *PostService) NewPostView(postID string, onChange func(models.Post)) (*PostView, error) {
	pv := &PostView{svc: s, postID: postID}
	pv.state = live.NewCoordinator(models.Post{}, onChange)
	handle, err := s.views.Acquire("posts/"+postID, "post:"+postID, func(data json.RawMessage) {
		if p, ok := live.MaterializeOne[models.Post](data); ok {
			pv.state.Reconcile(p)
		} else {
			pv.state.Reconcile(models.Post{})
		}
	})
	if err != nil {
		pv.state.Close()
		return nil, err
	}
	pv.handle = handle
	return pv, nil
}

// Post returns the current UI-visible post.
func (pv *PostView) Post() models.Post {
	return pv.state.Current()
}

// ToggleLike flips the actor's like optimistically, then persists the
// counter and liker set in one merge. The intent runs against the value
// current at call time, so rapid double-toggles serialize instead of losing
// updates. A failed write restores the pre-toggle state and returns the
// error.
func (pv *PostView) ToggleLike(ctx context.Context, actor live.ActorProfile) (bool, error) {
	var liked bool
	var author string
	var content string
	err := pv.state.Mutate(ctx, func(p models.Post) models.Post {
		next, nowLiked := toggleLike(p, actor.ID)
		liked = nowLiked
		author = p.UserID
		content = p.Content
		return next
	}, func(ctx context.Context, p models.Post) error {
		return pv.svc.store.Merge(ctx, map[string]any{
			"posts/" + pv.postID + "/likes":   p.Likes,
			"posts/" + pv.postID + "/likedBy": p.LikedBy,
		})
	})
	if err != nil {
		return false, err
	}
	if liked {
		pv.svc.fanout.Go(live.Notice{
			RecipientID: author,
			Type:        models.NotificationLike,
			Actor:       actor,
			PostID:      pv.postID,
			PostContent: content,
		})
	}
	return liked, nil
}

// React sets or clears the actor's reaction optimistically and persists the
// single map entry.
func (pv *PostView) React(ctx context.Context, actor live.ActorProfile, kind string) error {
	return pv.state.Mutate(ctx, func(p models.Post) models.Post {
		reactions := make(map[string]string, len(p.Reactions)+1)
		for k, v := range p.Reactions {
			reactions[k] = v
		}
		if reactions[actor.ID] == kind {
			delete(reactions, actor.ID)
		} else {
			reactions[actor.ID] = kind
		}
		p.Reactions = reactions
		return p
	}, func(ctx context.Context, p models.Post) error {
		path := "posts/" + pv.postID + "/reactions/" + actor.ID
		if v, ok := p.Reactions[actor.ID]; ok {
			return pv.svc.store.Write(ctx, path, v)
		}
		return pv.svc.store.Write(ctx, path, nil)
	})
}

// Close detaches the view. Idempotent with respect to late snapshots: any
// delivery after Close is a no-op.
func (pv *PostView) Close() {
	pv.state.Close()
	if pv.handle != nil {
		pv.handle.Release()
	}
}
