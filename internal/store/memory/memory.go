package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
	"github.com/Chauhan0050r/GPT-clone/internal/model/user"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
)

// Store implements store.Store with in-memory maps, suitable for development
// and tests.
type Store struct {
	mu       sync.RWMutex
	users    map[string]user.User // keyed by email
	sessions map[string]chat.Session
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]user.User),
		sessions: make(map[string]chat.Session),
	}
}

// CreateUser stores a new account, rejecting duplicate emails.
func (s *Store) CreateUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Email]; ok {
		return store.ErrEmailTaken
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.Email] = u
	return nil
}

// FindUserByEmail looks up an account by email.
func (s *Store) FindUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return user.User{}, store.ErrUserNotFound
	}
	return u, nil
}

// ListSessions returns the caller's sessions ordered newest first.
func (s *Store) ListSessions(_ context.Context, userID string) ([]chat.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]chat.SessionSummary, 0, 8)
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		summaries = append(summaries, chat.SessionSummary{
			ID:        session.ID,
			Name:      session.Name,
			CreatedAt: session.CreatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// CreateSession provisions an empty session owned by userID.
func (s *Store) CreateSession(_ context.Context, userID, name string) (chat.Session, error) {
	if name == "" {
		name = chat.DefaultSessionName
	}

	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Messages:  make([]chat.Message, 0, 16),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return copySession(session), nil
}

// GetSession retrieves an owned session with its full log.
func (s *Store) GetSession(_ context.Context, id, userID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return chat.Session{}, store.ErrSessionNotFound
	}
	return copySession(session), nil
}

// RenameSession updates the session name.
func (s *Store) RenameSession(_ context.Context, id, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return store.ErrSessionNotFound
	}
	session.Name = name
	session.UpdatedAt = time.Now().UTC()
	s.sessions[id] = session
	return nil
}

// DeleteSession removes an owned session. Deletion is terminal.
func (s *Store) DeleteSession(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return store.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// AppendMessages appends messages atomically, stamping timestamps at append
// time.
func (s *Store) AppendMessages(_ context.Context, id, userID string, messages []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return store.ErrSessionNotFound
	}

	now := time.Now().UTC()
	for _, msg := range messages {
		msg.Timestamp = now
		session.Messages = append(session.Messages, msg)
	}
	session.UpdatedAt = now
	s.sessions[id] = session
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func copySession(session chat.Session) chat.Session {
	copied := session
	copied.Messages = make([]chat.Message, len(session.Messages))
	copy(copied.Messages, session.Messages)
	return copied
}
