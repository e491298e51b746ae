package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
)

// sseUpdates is a one-slot mailbox for stream frames: a frame the client
// has not been written yet is replaced by a newer one, never queued behind
// it. Every frame is a full snapshot, so skipping intermediates is safe.
type sseUpdates struct {
	ch chan []byte
}

func newSSEUpdates() *sseUpdates { return &sseUpdates{ch: make(chan []byte, 1)} }

func (u *sseUpdates) offer(data []byte) {
	for {
		select {
		case u.ch <- data:
			return
		default:
			select {
			case <-u.ch:
			default:
			}
		}
	}
}

// streamSSE writes frames as server-sent events until the client
// disconnects.
func streamSSE(c echo.Context, updates *sseUpdates) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-updates.ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// Stream pushes the caller's notification list as server-sent events, one
// full snapshot per change. The subscription is released when the client
// disconnects.
func (h *NotificationHandler) Stream(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updates := newSSEUpdates()
	v, err := h.notifications.Watch(claims.UserID, func(items []live.Keyed[models.Notification]) {
		data, err := json.Marshal(items)
		if err != nil {
			return
		}
		updates.offer(data)
	})
	if err != nil {
		return serviceError(err)
	}
	defer v.Close()

	return streamSSE(c, updates)
}

// StreamThread pushes the transcript with one peer as server-sent events,
// re-sent in full on every change in either direction.
func (h *MessageHandler) StreamThread(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updates := newSSEUpdates()
	v, err := h.messages.WatchThread(claims.UserID, c.Param("peerId"), func(msgs []live.Keyed[models.Message]) {
		data, err := json.Marshal(msgs)
		if err != nil {
			return
		}
		updates.offer(data)
	})
	if err != nil {
		return serviceError(err)
	}
	defer v.Close()

	return streamSSE(c, updates)
}

// StreamConversations pushes the caller's conversation summaries as
// server-sent events, re-aggregated on every message change.
func (h *MessageHandler) StreamConversations(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updates := newSSEUpdates()
	v, err := h.messages.WatchConversations(claims.UserID, func(convs []models.Conversation) {
		data, err := json.Marshal(convs)
		if err != nil {
			return
		}
		updates.offer(data)
	})
	if err != nil {
		return serviceError(err)
	}
	defer v.Close()

	return streamSSE(c, updates)
}
