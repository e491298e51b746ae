package services

import (
	"context"
	"encoding/json"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

// notificationNewestFirst orders notifications by timestamp descending,
// falling back to key order (which is creation order for push keys).
func notificationNewestFirst(a, b live.Keyed[models.Notification]) bool {
	if a.Value.Timestamp != b.Value.Timestamp {
		return a.Value.Timestamp > b.Value.Timestamp
	}
	return a.ID > b.ID
}

// NotificationService reads and settles the per-recipient notification
// collections that the fan-out writer appends to.
type NotificationService struct {
	store store.Store
	views *live.Manager
}

// NewNotificationService wires the notification service.
func NewNotificationService(st store.Store, views *live.Manager) *NotificationService {
	return &NotificationService{store: st, views: views}
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]live.Keyed[models.Notification], error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "notifications/"+userID, &raw); err != nil {
		return nil, err
	}
	return live.Materialize[models.Notification](raw, notificationNewestFirst, nil), nil
}

// Watch opens a live view over the recipient's notifications, newest first.
func (s *NotificationService) Watch(userID string, onChange func([]live.Keyed[models.Notification])) (*live.View[models.Notification], error) {
	return live.Watch(s.views, "notifications/"+userID, "notifications:"+userID, notificationNewestFirst, nil, onChange)
}

// MarkRead flags one notification read. Flagging an already-read or absent
// notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	var raw json.RawMessage
	if err := s.store.Get(ctx, "notifications/"+userID+"/"+notificationID, &raw); err != nil {
		return err
	}
	if _, ok := live.MaterializeOne[models.Notification](raw); !ok {
		return nil
	}
	return s.store.Write(ctx, "notifications/"+userID+"/"+notificationID+"/read", true)
}

// MarkAllRead flags every unread notification in one atomic merge.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	items, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	updates := make(map[string]any)
	for _, n := range items {
		if !n.Value.Read {
			updates["notifications/"+userID+"/"+n.ID+"/read"] = true
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return s.store.Merge(ctx, updates)
}

// UnreadCount counts the recipient's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range items {
		if !n.Value.Read {
			count++
		}
	}
	return count, nil
}
