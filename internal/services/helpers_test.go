package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

// fixture wires every service over one in-memory store, the same way the
// router does in production.
type fixture struct {
	store         *store.MemoryStore
	views         *live.Manager
	fanout        *live.Fanout
	profiles      *ProfileService
	posts         *PostService
	comments      *CommentService
	follows       *FollowService
	messages      *MessageService
	notifications *NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(st.Close)

	views := live.NewManager(st)
	fanout := live.NewFanout(st)
	profiles := NewProfileService(st)
	return &fixture{
		store:         st,
		views:         views,
		fanout:        fanout,
		profiles:      profiles,
		posts:         NewPostService(st, views, fanout, profiles, nil),
		comments:      NewCommentService(st, views, fanout),
		follows:       NewFollowService(st, fanout, profiles),
		messages:      NewMessageService(st, views, profiles),
		notifications: NewNotificationService(st, views),
	}
}

// seedUser writes a profile and returns the matching actor identity.
func (f *fixture) seedUser(t *testing.T, id, username string) live.ActorProfile {
	t.Helper()
	profile := models.UserProfile{
		Username:     username,
		DisplayName:  username,
		ShowActivity: true,
	}
	require.NoError(t, f.store.Write(context.Background(), "users/"+id, profile))
	require.NoError(t, f.store.Write(context.Background(), "usernames/"+username, id))
	return live.ActorProfile{
		ID:          id,
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
}
