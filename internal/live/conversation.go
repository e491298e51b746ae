package live

import (
	"sort"

	"github.com/foxncici/mincici/internal/models"
)

// ProfileLookup resolves a user id to its profile for display
// denormalization. ok=false degrades the conversation to ids only instead
// of failing the aggregation.
type ProfileLookup func(userID string) (models.UserProfile, bool)

// AggregateConversations derives the conversation list for viewerID from
// the full flat message collection. Per counterpart it keeps the message
// with the highest timestamp and counts every unread message addressed to
// the viewer. The unread count is recomputed from scratch on every call:
// the input is always a full snapshot, so incremental counting would
// double-count on re-aggregation.
func AggregateConversations(msgs []Keyed[models.Message], viewerID string, lookup ProfileLookup) []models.Conversation {
	type bucket struct {
		last   models.Message
		unread int
	}
	byPeer := make(map[string]*bucket)
	for _, m := range msgs {
		if !m.Value.Involves(viewerID) {
			continue
		}
		peer := m.Value.Counterpart(viewerID)
		b, ok := byPeer[peer]
		if !ok {
			b = &bucket{last: m.Value}
			byPeer[peer] = b
		} else if m.Value.Timestamp > b.last.Timestamp {
			b.last = m.Value
		}
		if m.Value.ReceiverID == viewerID && !m.Value.Read {
			b.unread++
		}
	}

	out := make([]models.Conversation, 0, len(byPeer))
	for peer, b := range byPeer {
		conv := models.Conversation{
			UserID:          peer,
			LastMessage:     b.last.Content,
			LastMessageTime: b.last.Timestamp,
			UnreadCount:     b.unread,
		}
		if lookup != nil {
			if profile, ok := lookup(peer); ok {
				conv.Username = profile.Username
				conv.DisplayName = profile.DisplayName
				conv.PhotoURL = profile.PhotoURL
			}
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessageTime != out[j].LastMessageTime {
			return out[i].LastMessageTime > out[j].LastMessageTime
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
