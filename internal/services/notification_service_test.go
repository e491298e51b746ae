package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
)

func emit(t *testing.T, f *fixture, kind, from, to string) {
	t.Helper()
	require.NoError(t, f.fanout.Emit(context.Background(), live.Notice{
		RecipientID: to,
		Type:        kind,
		Actor:       live.ActorProfile{ID: from, Username: from},
	}))
}

func TestListIsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	emit(t, f, models.NotificationLike, "bob", "alice")
	time.Sleep(2 * time.Millisecond)
	emit(t, f, models.NotificationFollow, "carol", "alice")

	items, err := f.notifications.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.NotificationFollow, items[0].Value.Type)
	assert.Equal(t, models.NotificationLike, items[1].Value.Type)
}

func TestMarkReadSettlesOneNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	emit(t, f, models.NotificationLike, "bob", "alice")
	emit(t, f, models.NotificationComment, "bob", "alice")

	items, err := f.notifications.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, f.notifications.MarkRead(ctx, "alice", items[0].ID))

	count, err := f.notifications.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Marking the same one again, or a missing one, is a no-op.
	require.NoError(t, f.notifications.MarkRead(ctx, "alice", items[0].ID))
	require.NoError(t, f.notifications.MarkRead(ctx, "alice", "does-not-exist"))
	count, err = f.notifications.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		emit(t, f, models.NotificationLike, "bob", "alice")
	}
	require.NoError(t, f.notifications.MarkAllRead(ctx, "alice"))

	count, err := f.notifications.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Idempotent on an already-settled collection.
	require.NoError(t, f.notifications.MarkAllRead(ctx, "alice"))
}

func TestWatchSeesNewNotifications(t *testing.T) {
	f := newFixture(t)

	got := make(chan int, 16)
	v, err := f.notifications.Watch("alice", func(items []live.Keyed[models.Notification]) {
		got <- len(items)
	})
	require.NoError(t, err)
	defer v.Close()

	emit(t, f, models.NotificationFollow, "bob", "alice")

	require.Eventually(t, func() bool {
		select {
		case n := <-got:
			return n == 1
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
