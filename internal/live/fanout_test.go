package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

func TestEmitWritesUnreadNotificationWithServerTimestamp(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	f := NewFanout(st)

	err := f.Emit(context.Background(), Notice{
		RecipientID: "bob",
		Type:        models.NotificationLike,
		Actor:       ActorProfile{ID: "alice", Username: "alice", DisplayName: "Alice"},
		PostID:      "p1",
		PostContent: "hello",
	})
	require.NoError(t, err)

	var raw json.RawMessage
	require.NoError(t, st.Get(context.Background(), "notifications/bob", &raw))
	items := Materialize[models.Notification](raw, nil, nil)
	require.Len(t, items, 1)

	n := items[0].Value
	assert.Equal(t, models.NotificationLike, n.Type)
	assert.Equal(t, "alice", n.FromUserID)
	assert.Equal(t, "p1", n.PostID)
	assert.False(t, n.Read)
	assert.NotZero(t, n.Timestamp, "store must resolve the server timestamp")
}

func TestEmitSuppressesSelfNotification(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	f := NewFanout(st)

	err := f.Emit(context.Background(), Notice{
		RecipientID: "alice",
		Type:        models.NotificationLike,
		Actor:       ActorProfile{ID: "alice"},
	})
	require.NoError(t, err, "self-notification is a silent no-op, not an error")

	var raw json.RawMessage
	require.NoError(t, st.Get(context.Background(), "notifications/alice", &raw))
	assert.Empty(t, Materialize[models.Notification](raw, nil, nil))
}

func TestEmitAppendsUnderFreshKeys(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	f := NewFanout(st)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Emit(context.Background(), Notice{
			RecipientID: "bob",
			Type:        models.NotificationFollow,
			Actor:       ActorProfile{ID: "alice"},
		}))
	}

	var raw json.RawMessage
	require.NoError(t, st.Get(context.Background(), "notifications/bob", &raw))
	assert.Len(t, Materialize[models.Notification](raw, nil, nil), 3, "every emit appends, none overwrite")
}

func TestGoDeliversInBackground(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	f := NewFanout(st)

	f.Go(Notice{
		RecipientID: "bob",
		Type:        models.NotificationComment,
		Actor:       ActorProfile{ID: "alice"},
	})

	require.Eventually(t, func() bool {
		var raw json.RawMessage
		if err := st.Get(context.Background(), "notifications/bob", &raw); err != nil {
			return false
		}
		return len(Materialize[models.Notification](raw, nil, nil)) == 1
	}, time.Second, time.Millisecond)
}
