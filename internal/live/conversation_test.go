package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/models"
)

func msg(id, from, to string, ts int64, read bool) Keyed[models.Message] {
	return Keyed[models.Message]{ID: id, Value: models.Message{
		SenderID: from, ReceiverID: to, Content: "m-" + id, Timestamp: ts, Read: read,
	}}
}

func TestAggregateKeepsLatestMessagePerCounterpart(t *testing.T) {
	msgs := []Keyed[models.Message]{
		msg("m1", "a", "b", 100, true),
		msg("m2", "b", "a", 200, true),
		msg("m3", "a", "b", 300, false),
	}

	forA := AggregateConversations(msgs, "a", nil)
	require.Len(t, forA, 1)
	assert.Equal(t, "b", forA[0].UserID)
	assert.Equal(t, "m-m3", forA[0].LastMessage)
	assert.Equal(t, int64(300), forA[0].LastMessageTime)
	assert.Equal(t, 0, forA[0].UnreadCount, "a sent m3, so nothing is unread for a")

	forB := AggregateConversations(msgs, "b", nil)
	require.Len(t, forB, 1)
	assert.Equal(t, "m-m3", forB[0].LastMessage)
	assert.Equal(t, 1, forB[0].UnreadCount, "m3 is unread and addressed to b")
}

func TestAggregateSortsByRecency(t *testing.T) {
	msgs := []Keyed[models.Message]{
		msg("m1", "x", "a", 100, false),
		msg("m2", "y", "a", 300, false),
		msg("m3", "z", "a", 200, false),
	}
	out := AggregateConversations(msgs, "a", nil)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"y", "z", "x"}, []string{out[0].UserID, out[1].UserID, out[2].UserID})
}

func TestAggregateIgnoresOtherPeoplesThreads(t *testing.T) {
	msgs := []Keyed[models.Message]{
		msg("m1", "x", "y", 100, false),
	}
	assert.Empty(t, AggregateConversations(msgs, "a", nil))
}

func TestAggregateRecountsUnreadFromScratch(t *testing.T) {
	msgs := []Keyed[models.Message]{
		msg("m1", "b", "a", 100, false),
		msg("m2", "b", "a", 200, false),
	}
	first := AggregateConversations(msgs, "a", nil)
	require.Len(t, first, 1)
	assert.Equal(t, 2, first[0].UnreadCount)

	// Same snapshot again: the count must not accumulate.
	again := AggregateConversations(msgs, "a", nil)
	assert.Equal(t, 2, again[0].UnreadCount)

	// After the reader settles one message the next snapshot shows one.
	msgs[0].Value.Read = true
	settled := AggregateConversations(msgs, "a", nil)
	assert.Equal(t, 1, settled[0].UnreadCount)
}

func TestAggregateResolvesProfiles(t *testing.T) {
	msgs := []Keyed[models.Message]{
		msg("m1", "b", "a", 100, false),
		msg("m2", "ghost", "a", 200, false),
	}
	lookup := func(userID string) (models.UserProfile, bool) {
		if userID == "b" {
			return models.UserProfile{Username: "bob", DisplayName: "Bob"}, true
		}
		return models.UserProfile{}, false
	}
	out := AggregateConversations(msgs, "a", lookup)
	require.Len(t, out, 2)
	// ghost's profile is missing: the row degrades to ids, not an error.
	assert.Equal(t, "ghost", out[0].UserID)
	assert.Empty(t, out[0].Username)
	assert.Equal(t, "bob", out[1].Username)
}
