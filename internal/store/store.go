package store

import (
	"context"
	"errors"

	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
	"github.com/Chauhan0050r/GPT-clone/internal/model/user"
)

var (
	// ErrSessionNotFound covers both a missing session and a session owned
	// by someone else. Callers cannot tell the two apart.
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) error
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
}

// SessionStore persists chat sessions. Every operation that targets a single
// session takes the owner's user id and treats an ownership mismatch as
// ErrSessionNotFound.
type SessionStore interface {
	ListSessions(ctx context.Context, userID string) ([]chat.SessionSummary, error)
	CreateSession(ctx context.Context, userID, name string) (chat.Session, error)
	GetSession(ctx context.Context, id, userID string) (chat.Session, error)
	RenameSession(ctx context.Context, id, userID, name string) error
	DeleteSession(ctx context.Context, id, userID string) error
	// AppendMessages appends messages to the session log as a single atomic
	// write. Timestamps are stamped at append time.
	AppendMessages(ctx context.Context, id, userID string, messages []chat.Message) error
}

// Store bundles the two collections behind one lifecycle.
type Store interface {
	UserStore
	SessionStore
	Close() error
}
