package chat

import "time"

// Message roles. Only these two appear in a session log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single immutable turn in a session log. Append order defines
// conversation order.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is one entry of a transient conversation submitted for completion.
// Unlike Message it carries no timestamp: it is never persisted as such.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether r is a role a caller may submit.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAssistant
}
