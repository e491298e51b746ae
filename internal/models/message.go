package models

// Message is a direct message stored under messages/{id}. Timestamps are
// client-assigned send times. A message is mutated exactly once after
// creation: the receiver flips Read to true.
type Message struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
}

// Involves reports whether userID is either endpoint of the message.
func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Counterpart returns the other endpoint relative to userID.
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation is a derived view, never stored: the most recent exchange
// with one counterpart plus the viewer's unread count for that thread.
type Conversation struct {
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	PhotoURL        string `json:"photoURL,omitempty"`
	LastMessage     string `json:"lastMessage"`
	LastMessageTime int64  `json:"lastMessageTime"`
	UnreadCount     int    `json:"unreadCount"`
}

// SendMessageRequest defines the payload for sending a direct message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}
