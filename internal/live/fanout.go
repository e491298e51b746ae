package live

import (
	"context"
	"log"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/store"
)

// ActorProfile is the denormalized identity stamped onto fanned-out
// records: the acting user's id plus the display fields recipients render
// without a join.
type ActorProfile struct {
	ID          string
	Email       string
	Username    string
	DisplayName string
	PhotoURL    string
}

// Notice describes one notification to fan out.
type Notice struct {
	RecipientID    string
	Type           string // models.Notification* kind
	Actor          ActorProfile
	PostID         string
	PostContent    string
	CommentContent string
}

// Fanout appends notification records to recipients' collections as a side
// effect of qualifying mutations. It never writes when the actor is the
// recipient, always appends under a fresh key, and its failures must not
// undo the mutation that triggered it, so callers dispatch through Go and the
// error ends up in the log.
type Fanout struct {
	store store.Store
}

// NewFanout builds a Fanout over the given store.
func NewFanout(st store.Store) *Fanout {
	return &Fanout{store: st}
}

// Emit appends one unread notification with a server timestamp to the
// recipient's collection. Self-notification is suppressed, not an error.
func (f *Fanout) Emit(ctx context.Context, n Notice) error {
	if n.RecipientID == "" || n.RecipientID == n.Actor.ID {
		return nil
	}
	record := models.Notification{
		Type:            n.Type,
		FromUserID:      n.Actor.ID,
		FromUsername:    n.Actor.Username,
		FromDisplayName: n.Actor.DisplayName,
		FromPhotoURL:    n.Actor.PhotoURL,
		PostID:          n.PostID,
		PostContent:     n.PostContent,
		CommentContent:  n.CommentContent,
		Read:            false,
	}
	path := "notifications/" + n.RecipientID + "/" + f.store.PushKey("notifications/"+n.RecipientID)
	return f.store.Write(ctx, path, record)
}

// Go emits in the background, detached from the caller's context so an
// unmounting view cannot cancel it. Failures are logged and otherwise
// dropped: a lost notification never rolls back a like, comment, or
// follow.
func (f *Fanout) Go(n Notice) {
	go func() {
		if err := f.Emit(context.Background(), n); err != nil {
			log.Printf("notification fan-out to %s failed: %v", n.RecipientID, err)
		}
	}()
}
