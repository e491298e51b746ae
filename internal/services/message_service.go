package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

// messageOldestFirst orders a thread chronologically, id as tiebreak.
func messageOldestFirst(a, b live.Keyed[models.Message]) bool {
	if a.Value.Timestamp != b.Value.Timestamp {
		return a.Value.Timestamp < b.Value.Timestamp
	}
	return a.ID < b.ID
}

// MessageService owns the flat messages collection and the two derived
// shapes over it: per-counterpart conversation summaries and single-thread
// transcripts. Message timestamps are client send times, not server
// timestamps.
type MessageService struct {
	store    store.Store
	views    *live.Manager
	profiles *ProfileService
}

// NewMessageService wires the message service.
func NewMessageService(st store.Store, views *live.Manager, profiles *ProfileService) *MessageService {
	return &MessageService{store: st, views: views, profiles: profiles}
}

// Send writes one direct message under a fresh push key. Returns the
// message id.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if receiverID == senderID {
		return "", ErrSelfTarget
	}
	id := s.store.PushKey("messages")
	msg := models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
		Read:       false,
	}
	if err := s.store.Write(ctx, "messages/"+id, msg); err != nil {
		return "", err
	}
	return id, nil
}

// Conversations derives the viewer's conversation list from the full
// message collection.
func (s *MessageService) Conversations(ctx context.Context, viewerID string) ([]models.Conversation, error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "messages", &raw); err != nil {
		return nil, err
	}
	msgs := live.Materialize[models.Message](raw, nil, func(k live.Keyed[models.Message]) bool {
		return k.Value.Involves(viewerID)
	})
	return live.AggregateConversations(msgs, viewerID, s.profiles.Lookup()), nil
}

// WatchConversations opens a live view that re-aggregates the conversation
// list on every snapshot of the message collection.
func (s *MessageService) WatchConversations(viewerID string, onChange func([]models.Conversation)) (*live.View[models.Message], error) {
	keep := func(k live.Keyed[models.Message]) bool { return k.Value.Involves(viewerID) }
	lookup := s.profiles.Lookup()
	return live.Watch(s.views, "messages", "conversations:"+viewerID, nil, keep, func(msgs []live.Keyed[models.Message]) {
		onChange(live.AggregateConversations(msgs, viewerID, lookup))
	})
}

// Thread returns the transcript between the viewer and one peer, oldest
// first.
func (s *MessageService) Thread(ctx context.Context, viewerID, peerID string) ([]live.Keyed[models.Message], error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "messages", &raw); err != nil {
		return nil, err
	}
	return live.Materialize[models.Message](raw, messageOldestFirst, threadFilter(viewerID, peerID)), nil
}

// WatchThread opens a live view over one thread, oldest first.
func (s *MessageService) WatchThread(viewerID, peerID string, onChange func([]live.Keyed[models.Message])) (*live.View[models.Message], error) {
	scope := "thread:" + viewerID + ":" + peerID
	return live.Watch(s.views, "messages", scope, messageOldestFirst, threadFilter(viewerID, peerID), onChange)
}

// MarkThreadRead flags every unread message the peer sent to the viewer.
// Each message is flagged individually, so the operation is idempotent and
// a concurrent incoming message is simply picked up by the next call.
func (s *MessageService) MarkThreadRead(ctx context.Context, viewerID, peerID string) error {
	msgs, err := s.Thread(ctx, viewerID, peerID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.Value.ReceiverID != viewerID || m.Value.Read {
			continue
		}
		if err := s.store.Write(ctx, "messages/"+m.ID+"/read", true); err != nil {
			return err
		}
	}
	return nil
}

// UnreadCount counts unread messages addressed to the viewer across all
// threads.
func (s *MessageService) UnreadCount(ctx context.Context, viewerID string) (int, error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "messages", &raw); err != nil {
		return 0, err
	}
	msgs := live.Materialize[models.Message](raw, nil, func(k live.Keyed[models.Message]) bool {
		return k.Value.ReceiverID == viewerID && !k.Value.Read
	})
	return len(msgs), nil
}

func threadFilter(viewerID, peerID string) func(live.Keyed[models.Message]) bool {
	return func(k live.Keyed[models.Message]) bool {
		m := k.Value
		return (m.SenderID == viewerID && m.ReceiverID == peerID) ||
			(m.SenderID == peerID && m.ReceiverID == viewerID)
	}
}
