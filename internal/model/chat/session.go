package chat

import "time"

// DefaultSessionName is assigned to sessions created without an explicit name.
const DefaultSessionName = "New Chat"

// Session is a named, user-owned conversation log persisted independently of
// any single live connection.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"sessionName"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionSummary is the lightweight shape returned by session listings.
type SessionSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"sessionName"`
	CreatedAt time.Time `json:"createdAt"`
}
