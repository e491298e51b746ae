package services

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ProfileService manages users/{id} profiles and the usernames/{name}
// reservation index. The two must stay consistent: every profile username
// has a matching reservation pointing back at the profile's owner.
type ProfileService struct {
	store store.Store
}

// NewProfileService builds a ProfileService over the given store.
func NewProfileService(st store.Store) *ProfileService {
	return &ProfileService{store: st}
}

// Get loads one profile. ok is false when no profile exists at that id.
func (s *ProfileService) Get(ctx context.Context, userID string) (models.UserProfile, bool, error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "users/"+userID, &raw); err != nil {
		return models.UserProfile{}, false, err
	}
	p, ok := live.MaterializeOne[models.UserProfile](raw)
	return p, ok, nil
}

// EnsureProfile creates a skeleton profile on first sign-in and returns the
// existing one otherwise. The display name defaults to the local part of
// the email until the user picks one.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, email string) (models.UserProfile, error) {
	p, ok, err := s.Get(ctx, userID)
	if err != nil {
		return models.UserProfile{}, err
	}
	if ok {
		return p, nil
	}
	display := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		display = email[:at]
	}
	p = models.UserProfile{
		DisplayName:  display,
		ShowActivity: true,
	}
	if err := s.store.Write(ctx, "users/"+userID, p); err != nil {
		return models.UserProfile{}, err
	}
	return p, nil
}

// Update applies the provided profile fields in one atomic merge. Absent
// fields are left untouched.
func (s *ProfileService) Update(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	updates := make(map[string]any)
	base := "users/" + userID + "/"
	if req.DisplayName != nil {
		updates[base+"displayName"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		updates[base+"bio"] = *req.Bio
	}
	if req.IsPrivate != nil {
		updates[base+"isPrivate"] = *req.IsPrivate
	}
	if req.ShowActivity != nil {
		updates[base+"showActivity"] = *req.ShowActivity
	}
	if len(updates) == 0 {
		return nil
	}
	return s.store.Merge(ctx, updates)
}

// NormalizeUsername lowercases and validates a requested username.
func NormalizeUsername(username string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if len(name) < 3 || len(name) > 30 || !usernamePattern.MatchString(name) {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// CheckUsernameAvailable reports whether name is unclaimed or already owned
// by userID.
func (s *ProfileService) CheckUsernameAvailable(ctx context.Context, userID, username string) (bool, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return false, err
	}
	var owner string
	if err := s.store.Get(ctx, "usernames/"+name, &owner); err != nil {
		return false, err
	}
	return owner == "" || owner == userID, nil
}

// SetUsername claims a username for userID and releases the previous one.
// The reservation goes through the store's conditional claim, which checks
// and writes in one atomic step: of any number of concurrent claimants for
// a free name exactly one wins and the rest get ErrUsernameTaken. Claiming
// one's own current reservation succeeds, so retries are harmless. The new
// name is claimed before the old reservation is released so the user never
// passes through a state with no reservation at all.
func (s *ProfileService) SetUsername(ctx context.Context, userID, username string) error {
	name, err := NormalizeUsername(username)
	if err != nil {
		return err
	}

	current, _, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if current.Username == name {
		return nil
	}

	claimed, err := s.store.Claim(ctx, "usernames/"+name, userID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrUsernameTaken
	}

	if err := s.store.Write(ctx, "users/"+userID+"/username", name); err != nil {
		return err
	}
	if old := strings.ToLower(current.Username); old != "" && old != name {
		if err := s.store.Write(ctx, "usernames/"+old, nil); err != nil {
			// The new identity is already in place; a leaked old
			// reservation is recoverable, not fatal.
			log.Printf("releasing username %q for %s failed: %v", old, userID, err)
		}
	}
	return nil
}

// UpdatePhoto sets a new avatar and fans the URL out to every post the user
// authored, in a single atomic merge, so old posts do not keep rendering a
// stale avatar.
func (s *ProfileService) UpdatePhoto(ctx context.Context, userID, photoURL string) error {
	updates := map[string]any{
		"users/" + userID + "/photoURL": photoURL,
	}
	var raw json.RawMessage
	if err := s.store.Get(ctx, "posts", &raw); err != nil {
		return err
	}
	posts := live.Materialize[models.Post](raw, nil, func(k live.Keyed[models.Post]) bool {
		return k.Value.UserID == userID
	})
	for _, p := range posts {
		updates["posts/"+p.ID+"/photoURL"] = photoURL
	}
	return s.store.Merge(ctx, updates)
}

// TouchActivity records a presence heartbeat. Skipped when the user has
// activity sharing turned off.
func (s *ProfileService) TouchActivity(ctx context.Context, userID string) error {
	p, ok, err := s.Get(ctx, userID)
	if err != nil || !ok {
		return err
	}
	if !p.ShowActivity {
		return nil
	}
	return s.store.Write(ctx, "users/"+userID+"/lastActive", time.Now().UnixMilli())
}

// Lookup adapts the service into the resolver shape the conversation
// aggregator takes. Lookups run against a background context; a failed
// lookup degrades the row to ids instead of failing aggregation.
func (s *ProfileService) Lookup() live.ProfileLookup {
	return func(userID string) (models.UserProfile, bool) {
		p, ok, err := s.Get(context.Background(), userID)
		if err != nil {
			return models.UserProfile{}, false
		}
		return p, ok
	}
}
