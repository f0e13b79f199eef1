package domain

import "time"

const (
	MaxMessageLength   = 2000
	DefaultHistorySize = 100
)

// Message is a chat message posted to a team room.
type Message struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	ReadBy    []string  `json:"readBy"`
}

// ReadByUser reports whether userID has read m.
func (m Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// TeamStats summarises chat activity of one team for a user.
type TeamStats struct {
	TeamID          string     `json:"teamId"`
	UnreadCount     int        `json:"unreadCount"`
	LastMessageTime *time.Time `json:"lastMessageTime"`
}
