package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
)

func TestSendValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messages.Send(ctx, "a", "b", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = f.messages.Send(ctx, "a", "a", "hi me")
	assert.ErrorIs(t, err, ErrSelfTarget)
}

func TestConversationListDerivation(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a", "anna")
	f.seedUser(t, "b", "ben")
	ctx := context.Background()

	// a -> b, b -> a, a -> b again: one conversation per side, last message
	// m3, and b has one unread from the exchange.
	_, err := f.messages.Send(ctx, "a", "b", "one")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.messages.Send(ctx, "b", "a", "two")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.messages.Send(ctx, "a", "b", "three")
	require.NoError(t, err)

	forB, err := f.messages.Conversations(ctx, "b")
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, "a", forB[0].UserID)
	assert.Equal(t, "anna", forB[0].Username)
	assert.Equal(t, "three", forB[0].LastMessage)
	assert.Equal(t, 2, forB[0].UnreadCount)

	forA, err := f.messages.Conversations(ctx, "a")
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, 1, forA[0].UnreadCount, "only 'two' is unread for a")
}

func TestThreadIsChronologicalAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m1, err := f.messages.Send(ctx, "a", "b", "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	m2, err := f.messages.Send(ctx, "b", "a", "second")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "a", "c", "other thread")
	require.NoError(t, err)

	thread, err := f.messages.Thread(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, m1, thread[0].ID)
	assert.Equal(t, m2, thread[1].ID)
}

func TestMarkThreadReadIsIdempotentAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messages.Send(ctx, "b", "a", "unread 1")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "b", "a", "unread 2")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "c", "a", "from someone else")
	require.NoError(t, err)

	require.NoError(t, f.messages.MarkThreadRead(ctx, "a", "b"))

	count, err := f.messages.UnreadCount(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only b's thread is settled")

	// A second pass changes nothing.
	require.NoError(t, f.messages.MarkThreadRead(ctx, "a", "b"))
	count, err = f.messages.UnreadCount(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The sender's own messages are never flagged by the receiver's pass.
	thread, err := f.messages.Thread(ctx, "b", "a")
	require.NoError(t, err)
	for _, m := range thread {
		assert.True(t, m.Value.Read)
	}
}

func TestWatchConversationsReaggregatesOnChange(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a", "anna")
	f.seedUser(t, "b", "ben")

	var mu sync.Mutex
	var latest []models.Conversation
	v, err := f.messages.WatchConversations("b", func(convs []models.Conversation) {
		mu.Lock()
		latest = convs
		mu.Unlock()
	})
	require.NoError(t, err)
	defer v.Close()

	_, err = f.messages.Send(context.Background(), "a", "b", "ping")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1 && latest[0].UnreadCount == 1 && latest[0].LastMessage == "ping"
	}, time.Second, time.Millisecond)
}

func TestWatchThreadSeesLiveMessages(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var latest []live.Keyed[models.Message]
	v, err := f.messages.WatchThread("a", "b", func(msgs []live.Keyed[models.Message]) {
		mu.Lock()
		latest = msgs
		mu.Unlock()
	})
	require.NoError(t, err)
	defer v.Close()

	ctx := context.Background()
	_, err = f.messages.Send(ctx, "a", "b", "hello")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, "a", "c", "other thread")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1 && latest[0].Value.Content == "hello"
	}, time.Second, time.Millisecond)
}
