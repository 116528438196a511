package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
)

// IntroMessage is seeded locally into an empty session log. It is never
// persisted and is stripped from conversations before submission.
const IntroMessage = "I may be a clone, but I can help you like the real one. Tell me, how can I help you today?"

// DefaultFragmentDelay paces rendered fragments so replies appear to be
// typed, matching the web client.
const DefaultFragmentDelay = 35 * time.Millisecond

const maxAutoNameLen = 50

// Phase is the reconciler's position in the session-identity state machine.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseResolving
	PhaseActive
	PhaseStreaming
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseResolving:
		return "resolving"
	case PhaseActive:
		return "active"
	case PhaseStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

var (
	ErrNoSession      = errors.New("no session bound")
	ErrStreamInFlight = errors.New("a reply is already streaming")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNotLoggedIn    = errors.New("not logged in")
)

// Reconciler maintains local conversation state for one user: which session
// is bound, its rendered log, and the pacing of streamed fragments. It
// mirrors the browser tab's state machine.
type Reconciler struct {
	api           *Client
	stateFile     *StateFile
	log           *zap.Logger
	fragmentDelay time.Duration

	mu          sync.Mutex
	phase       Phase
	token       string
	nickname    string
	sessionID   string
	sessionName string
	messages    []chat.Message
	sessions    []chat.SessionSummary
	streamGen   int
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithFragmentDelay overrides the per-fragment rendering delay. Zero disables
// pacing.
func WithFragmentDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.fragmentDelay = d }
}

// WithLogger sets the reconciler's logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// NewReconciler builds a reconciler over the API client and local state file.
func NewReconciler(api *Client, stateFile *StateFile, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:           api,
		stateFile:     stateFile,
		log:           zap.NewNop(),
		fragmentDelay: DefaultFragmentDelay,
		phase:         PhaseUnauthenticated,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start restores persisted identity and, when a credential is present,
// resolves a session to bind.
func (r *Reconciler) Start(ctx context.Context) error {
	state, err := r.stateFile.Load()
	if err != nil {
		return err
	}
	if state.Token == "" {
		return nil
	}

	r.mu.Lock()
	r.token = state.Token
	r.nickname = state.Nickname
	r.phase = PhaseResolving
	r.mu.Unlock()

	return r.Resolve(ctx)
}

// Register creates an account and binds a session.
func (r *Reconciler) Register(ctx context.Context, email, password, nickname string) error {
	cred, err := r.api.Register(ctx, email, password, nickname)
	if err != nil {
		return err
	}
	return r.adoptCredential(ctx, cred)
}

// Login authenticates and binds a session.
func (r *Reconciler) Login(ctx context.Context, email, password string) error {
	cred, err := r.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return r.adoptCredential(ctx, cred)
}

func (r *Reconciler) adoptCredential(ctx context.Context, cred Credential) error {
	state, err := r.stateFile.Load()
	if err != nil {
		return err
	}
	state.Token = cred.Token
	state.Nickname = cred.Nickname
	if err := r.stateFile.Save(state); err != nil {
		return err
	}

	r.mu.Lock()
	r.token = cred.Token
	r.nickname = cred.Nickname
	r.phase = PhaseResolving
	r.mu.Unlock()

	return r.Resolve(ctx)
}

// Resolve binds a session: the remembered one when the server still
// recognizes it, otherwise a freshly created one. The fallback is silent
// because a stale id is an expected condition, not an error.
func (r *Reconciler) Resolve(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	state, err := r.stateFile.Load()
	if err != nil {
		return err
	}

	if state.LastSessionID != "" {
		session, err := r.api.GetSession(ctx, token, state.LastSessionID)
		if err == nil {
			r.bind(session, true)
			return nil
		}
		r.log.Info("could not resume session, creating a new one",
			zap.String("session_id", state.LastSessionID), zap.Error(err))
		state.LastSessionID = ""
		if saveErr := r.stateFile.Save(state); saveErr != nil {
			return saveErr
		}
	}

	session, err := r.api.CreateSession(ctx, token, chat.DefaultSessionName)
	if err != nil {
		return err
	}
	// The sidebar list is refreshed separately; binding never double-adds.
	r.bind(session, true)
	return nil
}

// bind replaces local session state wholesale and remembers the id.
func (r *Reconciler) bind(session chat.Session, seedIntro bool) {
	messages := session.Messages
	if len(messages) == 0 && seedIntro {
		messages = []chat.Message{{
			Role:      chat.RoleAssistant,
			Content:   IntroMessage,
			Timestamp: time.Now(),
		}}
	}

	r.mu.Lock()
	// A rebind orphans any in-flight stream; its fragments must not land in
	// the replacement log.
	r.streamGen++
	r.sessionID = session.ID
	r.sessionName = session.Name
	r.messages = messages
	r.phase = PhaseActive
	state := LocalState{Token: r.token, Nickname: r.nickname, LastSessionID: session.ID}
	r.mu.Unlock()

	if err := r.stateFile.Save(state); err != nil {
		r.log.Warn("failed to remember session", zap.Error(err))
	}
}

// Send submits one user turn: the message is appended optimistically, the
// first turn triggers a concurrent auto-rename, and the assistant reply is
// assembled fragment by fragment into a placeholder entry.
func (r *Reconciler) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	r.mu.Lock()
	if r.phase == PhaseStreaming {
		r.mu.Unlock()
		return ErrStreamInFlight
	}
	if r.phase != PhaseActive || r.sessionID == "" {
		r.mu.Unlock()
		return ErrNoSession
	}

	firstTurn := !hasUserMessage(r.messages)
	r.messages = append(r.messages, chat.Message{
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	conversation := conversationFrom(r.messages)

	// Placeholder the fragments accumulate into.
	r.messages = append(r.messages, chat.Message{Role: chat.RoleAssistant})
	placeholderIdx := len(r.messages) - 1

	r.phase = PhaseStreaming
	r.streamGen++
	gen := r.streamGen
	token := r.token
	sessionID := r.sessionID

	autoName := ""
	if firstTurn {
		autoName = truncateName(text)
		// Reflect locally right away; confirmation never blocks input.
		r.sessionName = autoName
		for i := range r.sessions {
			if r.sessions[i].ID == sessionID {
				r.sessions[i].Name = autoName
			}
		}
	}
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	if firstTurn {
		g.Go(func() error {
			if err := r.api.RenameSession(gctx, token, sessionID, autoName); err != nil {
				r.log.Warn("auto-rename failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			return nil
		})
	}

	var assembled strings.Builder
	g.Go(func() error {
		return r.api.StreamChat(gctx, token, sessionID, conversation, func(delta string) {
			if r.fragmentDelay > 0 {
				time.Sleep(r.fragmentDelay)
			}
			assembled.WriteString(delta)
			cumulative := assembled.String()

			r.mu.Lock()
			if r.streamGen == gen && placeholderIdx < len(r.messages) {
				r.messages[placeholderIdx].Content = cumulative
			}
			r.mu.Unlock()
		})
	})

	err := g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streamGen != gen {
		// State was reset (logout) while streaming; discard the result.
		return err
	}
	r.phase = PhaseActive
	if placeholderIdx < len(r.messages) {
		if err != nil {
			if r.messages[placeholderIdx].Content == "" {
				r.messages[placeholderIdx].Content = "Something went wrong while streaming. Please try again."
			}
		} else {
			r.messages[placeholderIdx].Timestamp = time.Now()
		}
	}
	return err
}

// NewSession creates a fresh session via the explicit "new chat" action and
// binds it. Unlike the Resolve fallback it does appear in the local list
// immediately.
func (r *Reconciler) NewSession(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	session, err := r.api.CreateSession(ctx, token, chat.DefaultSessionName)
	if err != nil {
		return err
	}
	r.bind(session, true)

	r.mu.Lock()
	r.sessions = append([]chat.SessionSummary{{
		ID:        session.ID,
		Name:      session.Name,
		CreatedAt: session.CreatedAt,
	}}, r.sessions...)
	r.mu.Unlock()
	return nil
}

// RefreshSessions reloads the sidebar list.
func (r *Reconciler) RefreshSessions(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	sessions, err := r.api.ListSessions(ctx, token)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sessions = sessions
	r.mu.Unlock()
	return nil
}

// SelectSession fetches a session and replaces the local log wholesale.
func (r *Reconciler) SelectSession(ctx context.Context, id string) error {
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	session, err := r.api.GetSession(ctx, token, id)
	if err != nil {
		return err
	}
	r.bind(session, false)
	return nil
}

// DeleteSession removes a session. Deleting the bound session clears local
// state back to no-session; call Resolve to bind a fresh one.
func (r *Reconciler) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	if err := r.api.DeleteSession(ctx, token, id); err != nil {
		return err
	}

	r.mu.Lock()
	filtered := r.sessions[:0]
	for _, s := range r.sessions {
		if s.ID != id {
			filtered = append(filtered, s)
		}
	}
	r.sessions = filtered

	wasBound := r.sessionID == id
	var state LocalState
	if wasBound {
		r.sessionID = ""
		r.sessionName = ""
		r.messages = nil
		r.phase = PhaseResolving
		state = LocalState{Token: r.token, Nickname: r.nickname}
	}
	r.mu.Unlock()

	if wasBound {
		if err := r.stateFile.Save(state); err != nil {
			r.log.Warn("failed to forget deleted session", zap.Error(err))
		}
	}
	return nil
}

// Logout discards all local identity and session state unconditionally,
// including any in-flight stream.
func (r *Reconciler) Logout() error {
	r.mu.Lock()
	r.streamGen++
	r.token = ""
	r.nickname = ""
	r.sessionID = ""
	r.sessionName = ""
	r.messages = nil
	r.sessions = nil
	r.phase = PhaseUnauthenticated
	r.mu.Unlock()

	return r.stateFile.Clear()
}

// Phase reports the current state-machine phase.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Nickname returns the logged-in display name.
func (r *Reconciler) Nickname() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nickname
}

// SessionID returns the bound session id, empty when none is bound.
func (r *Reconciler) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// SessionName returns the bound session's name.
func (r *Reconciler) SessionName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionName
}

// Messages returns a copy of the rendered log.
func (r *Reconciler) Messages() []chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Sessions returns a copy of the sidebar list.
func (r *Reconciler) Sessions() []chat.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.SessionSummary, len(r.sessions))
	copy(out, r.sessions)
	return out
}

func hasUserMessage(messages []chat.Message) bool {
	for _, msg := range messages {
		if msg.Role == chat.RoleUser {
			return true
		}
	}
	return false
}

// conversationFrom strips the synthetic intro and the streaming placeholder
// so only real turns reach the provider.
func conversationFrom(messages []chat.Message) []chat.Turn {
	conversation := make([]chat.Turn, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == chat.RoleAssistant && (msg.Content == IntroMessage || msg.Content == "") {
			continue
		}
		conversation = append(conversation, chat.Turn{Role: msg.Role, Content: msg.Content})
	}
	return conversation
}

func truncateName(text string) string {
	runes := []rune(text)
	if len(runes) <= maxAutoNameLen {
		return text
	}
	return string(runes[:maxAutoNameLen])
}
