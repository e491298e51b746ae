package services

import (
	"context"
	"sort"
	"time"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

// FollowService owns the bidirectional follow edges. Every follow is stored
// twice, under followers/{target}/{follower} and following/{follower}/{target},
// and both edges are always written in one atomic merge so no snapshot ever
// observes half an edge.
type FollowService struct {
	store    store.Store
	fanout   *live.Fanout
	profiles *ProfileService
}

// NewFollowService wires the follow service.
func NewFollowService(st store.Store, fanout *live.Fanout, profiles *ProfileService) *FollowService {
	return &FollowService{store: st, fanout: fanout, profiles: profiles}
}

// Follow creates both edges of actor -> targetID and notifies the target.
// Following someone already followed is a no-op rewrite of the same edges.
func (s *FollowService) Follow(ctx context.Context, actor live.ActorProfile, targetID string) error {
	if targetID == actor.ID {
		return ErrSelfTarget
	}
	already, err := s.IsFollowing(ctx, actor.ID, targetID)
	if err != nil {
		return err
	}
	err = s.store.Merge(ctx, map[string]any{
		"followers/" + targetID + "/" + actor.ID: true,
		"following/" + actor.ID + "/" + targetID: true,
	})
	if err != nil {
		return err
	}
	if !already {
		s.fanout.Go(live.Notice{
			RecipientID: targetID,
			Type:        models.NotificationFollow,
			Actor:       actor,
		})
	}
	return nil
}

// Unfollow removes both edges in one atomic merge. No notification.
func (s *FollowService) Unfollow(ctx context.Context, actorID, targetID string) error {
	if targetID == actorID {
		return ErrSelfTarget
	}
	return s.store.Merge(ctx, map[string]any{
		"followers/" + targetID + "/" + actorID: nil,
		"following/" + actorID + "/" + targetID: nil,
	})
}

// IsFollowing reports whether followerID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	var edge bool
	if err := s.store.Get(ctx, "following/"+followerID+"/"+targetID, &edge); err != nil {
		return false, err
	}
	return edge, nil
}

// Followers lists the users following userID, resolved to summaries.
func (s *FollowService) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	ids, err := s.edgeKeys(ctx, "followers/"+userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// Following lists the users userID follows, resolved to summaries.
func (s *FollowService) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	ids, err := s.edgeKeys(ctx, "following/"+userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// Mutuals lists users who follow userID and are followed back.
func (s *FollowService) Mutuals(ctx context.Context, userID string) ([]models.UserSummary, error) {
	followers, err := s.edgeKeys(ctx, "followers/"+userID)
	if err != nil {
		return nil, err
	}
	following, err := s.edgeKeys(ctx, "following/"+userID)
	if err != nil {
		return nil, err
	}
	followed := make(map[string]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}
	mutual := make([]string, 0, len(followers))
	for _, id := range followers {
		if followed[id] {
			mutual = append(mutual, id)
		}
	}
	return s.resolve(ctx, mutual)
}

// activeWindow is how recent a lastActive touch must be for a user to
// count as active.
const activeWindow = 5 * time.Minute

// ActiveFollowed lists followed users who share activity and were active
// within the last five minutes, most recently active first, capped at limit.
func (s *FollowService) ActiveFollowed(ctx context.Context, userID string, limit int) ([]models.UserSummary, error) {
	ids, err := s.edgeKeys(ctx, "following/"+userID)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-activeWindow).UnixMilli()
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		profile, ok, err := s.profiles.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok || !profile.ShowActivity || profile.LastActive < cutoff {
			continue
		}
		out = append(out, profile.Summary(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive != out[j].LastActive {
			return out[i].LastActive > out[j].LastActive
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// edgeKeys reads an edge map and returns its child keys sorted.
func (s *FollowService) edgeKeys(ctx context.Context, path string) ([]string, error) {
	var edges map[string]bool
	if err := s.store.Get(ctx, path, &edges); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for id, on := range edges {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// resolve maps ids to summaries, skipping profiles that no longer exist.
func (s *FollowService) resolve(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		profile, ok, err := s.profiles.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, profile.Summary(id))
	}
	return out, nil
}
