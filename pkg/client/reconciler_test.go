package client_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/config"
	"github.com/Chauhan0050r/GPT-clone/internal/handler"
	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
	"github.com/Chauhan0050r/GPT-clone/internal/service/ai"
	"github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/internal/store/memory"
	"github.com/Chauhan0050r/GPT-clone/pkg/client"
)

type scriptedStream struct {
	fragments []string
	finalErr  error
}

func (s *scriptedStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		if s.finalErr != nil {
			return "", s.finalErr
		}
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *scriptedStream) Close() {}

// channelStream yields fragments as the test feeds them, so a test can hold a
// stream open mid-reply. Closing the channel ends the stream.
type channelStream struct {
	ch chan string
}

func (s *channelStream) Recv() (string, error) {
	fragment, ok := <-s.ch
	if !ok {
		return "", io.EOF
	}
	return fragment, nil
}

func (s *channelStream) Close() {}

// scriptedGateway replays queued token streams and records the conversations
// it was asked to complete.
type scriptedGateway struct {
	mu            sync.Mutex
	scripts       []ai.TokenStream
	conversations [][]chat.Turn
}

func (g *scriptedGateway) push(fragments []string, finalErr error) {
	g.pushStream(&scriptedStream{fragments: fragments, finalErr: finalErr})
}

func (g *scriptedGateway) pushStream(stream ai.TokenStream) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts = append(g.scripts, stream)
}

func (g *scriptedGateway) Stream(ctx context.Context, conversation []chat.Turn) (ai.TokenStream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conversations = append(g.conversations, conversation)
	if len(g.scripts) == 0 {
		return nil, errors.New("no scripted reply")
	}
	next := g.scripts[0]
	g.scripts = g.scripts[1:]
	return next, nil
}

func (g *scriptedGateway) seen() [][]chat.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]chat.Turn(nil), g.conversations...)
}

type env struct {
	srv       *httptest.Server
	store     *memory.Store
	authSvc   *auth.Service
	gateway   *scriptedGateway
	statePath string
	rec       *client.Reconciler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st := memory.New()
	authSvc := auth.NewService(st, config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	gateway := &scriptedGateway{}

	srv := httptest.NewServer(handler.NewRouter(authSvc, st, gateway, zap.NewNop(), 5*time.Second))
	t.Cleanup(srv.Close)

	statePath := filepath.Join(t.TempDir(), "state.yaml")
	return &env{
		srv:       srv,
		store:     st,
		authSvc:   authSvc,
		gateway:   gateway,
		statePath: statePath,
		rec:       newReconciler(srv.URL, statePath),
	}
}

func newReconciler(baseURL, statePath string) *client.Reconciler {
	return client.NewReconciler(
		client.New(baseURL, zap.NewNop()),
		client.NewStateFile(statePath),
		client.WithFragmentDelay(0),
	)
}

// userID extracts the account id behind the remembered credential so tests
// can inspect the server store directly.
func (e *env) userID(t *testing.T) string {
	t.Helper()
	state, err := client.NewStateFile(e.statePath).Load()
	require.NoError(t, err)
	claims, err := e.authSvc.VerifyToken(state.Token)
	require.NoError(t, err)
	return claims.UserID
}

func TestRegisterBindsFreshSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))
	require.Equal(t, client.PhaseActive, e.rec.Phase())
	require.Equal(t, chat.DefaultSessionName, e.rec.SessionName())

	messages := e.rec.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, chat.RoleAssistant, messages[0].Role)
	require.Equal(t, client.IntroMessage, messages[0].Content)

	// The greeting is local only.
	stored, err := e.store.GetSession(ctx, e.rec.SessionID(), e.userID(t))
	require.NoError(t, err)
	require.Empty(t, stored.Messages)
}

func TestSendStreamsRenamesAndPersists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	e.gateway.push([]string{"Hi", " there", "!"}, nil)
	require.NoError(t, e.rec.Send(ctx, "Hello"))

	messages := e.rec.Messages()
	require.Len(t, messages, 3)
	require.Equal(t, "Hello", messages[1].Content)
	require.Equal(t, "Hi there!", messages[2].Content)
	require.False(t, messages[2].Timestamp.IsZero())

	// The first turn renames the session on both sides.
	require.Equal(t, "Hello", e.rec.SessionName())
	stored, err := e.store.GetSession(ctx, e.rec.SessionID(), e.userID(t))
	require.NoError(t, err)
	require.Equal(t, "Hello", stored.Name)
	require.Len(t, stored.Messages, 2)
	require.Equal(t, chat.RoleUser, stored.Messages[0].Role)
	require.Equal(t, "Hi there!", stored.Messages[1].Content)

	// The second turn keeps the name and carries the full history, minus
	// the local greeting.
	e.gateway.push([]string{"Sure."}, nil)
	require.NoError(t, e.rec.Send(ctx, "Another question"))
	require.Equal(t, "Hello", e.rec.SessionName())

	seen := e.gateway.seen()
	require.Len(t, seen, 2)
	require.Equal(t, []chat.Turn{{Role: chat.RoleUser, Content: "Hello"}}, seen[0])
	require.Equal(t, []chat.Turn{
		{Role: chat.RoleUser, Content: "Hello"},
		{Role: chat.RoleAssistant, Content: "Hi there!"},
		{Role: chat.RoleUser, Content: "Another question"},
	}, seen[1])
}

func TestAutoNameIsTruncated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	long := strings.Repeat("x", 80)
	e.gateway.push([]string{"ok"}, nil)
	require.NoError(t, e.rec.Send(ctx, long))

	require.Len(t, []rune(e.rec.SessionName()), 50)
	require.True(t, strings.HasPrefix(long, e.rec.SessionName()))
}

func TestFragmentPacingDelaysRendering(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	paced := client.NewReconciler(
		client.New(e.srv.URL, zap.NewNop()),
		client.NewStateFile(e.statePath),
		client.WithFragmentDelay(25*time.Millisecond),
	)
	require.NoError(t, paced.Register(ctx, "a@b.c", "hunter2", "alice"))

	e.gateway.push([]string{"a", "b", "c", "d"}, nil)
	start := time.Now()
	require.NoError(t, paced.Send(ctx, "Hello"))
	elapsed := time.Since(start)

	// Four fragments at 25ms apiece put a floor under the wall time.
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)

	messages := paced.Messages()
	require.Equal(t, "abcd", messages[len(messages)-1].Content)
}

func TestRebindDuringStreamDiscardsStaleFragments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	feed := make(chan string)
	e.gateway.pushStream(&channelStream{ch: feed})

	sendErr := make(chan error, 1)
	go func() { sendErr <- e.rec.Send(ctx, "Hello") }()

	feed <- "Hi"
	require.Eventually(t, func() bool {
		messages := e.rec.Messages()
		return len(messages) > 0 && messages[len(messages)-1].Content == "Hi"
	}, 2*time.Second, 5*time.Millisecond)

	// Switching chats mid-reply orphans the old placeholder.
	require.NoError(t, e.rec.NewSession(ctx))
	freshID := e.rec.SessionID()

	feed <- " there"
	close(feed)
	require.NoError(t, <-sendErr)

	// The fresh log holds only its greeting; no stale fragment landed in it.
	require.Equal(t, freshID, e.rec.SessionID())
	messages := e.rec.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, client.IntroMessage, messages[0].Content)
	require.Equal(t, client.PhaseActive, e.rec.Phase())
}

func TestStaleSessionFallsBackSilently(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))
	staleID := e.rec.SessionID()

	// The remembered session vanishes behind the client's back.
	require.NoError(t, e.store.DeleteSession(ctx, staleID, e.userID(t)))

	resumed := newReconciler(e.srv.URL, e.statePath)
	require.NoError(t, resumed.Start(ctx))
	require.Equal(t, client.PhaseActive, resumed.Phase())
	require.NotEqual(t, staleID, resumed.SessionID())
	require.NotEmpty(t, resumed.SessionID())

	messages := resumed.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, client.IntroMessage, messages[0].Content)
}

func TestResumeRestoresFullLog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	e.gateway.push([]string{"Hi there!"}, nil)
	require.NoError(t, e.rec.Send(ctx, "Hello"))
	boundID := e.rec.SessionID()

	resumed := newReconciler(e.srv.URL, e.statePath)
	require.NoError(t, resumed.Start(ctx))
	require.Equal(t, boundID, resumed.SessionID())
	require.Equal(t, "Hello", resumed.SessionName())

	// A non-empty log is rendered as stored, without the greeting.
	messages := resumed.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "Hello", messages[0].Content)
	require.Equal(t, "Hi there!", messages[1].Content)
}

func TestStreamFailureKeepsPartialReply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	e.gateway.push([]string{"Hi"}, errors.New("provider broke"))
	err := e.rec.Send(ctx, "Hello")
	require.ErrorIs(t, err, client.ErrStreamFailed)
	require.Equal(t, client.PhaseActive, e.rec.Phase())

	messages := e.rec.Messages()
	require.Equal(t, "Hi", messages[len(messages)-1].Content)

	// A broken exchange is never persisted.
	stored, err := e.store.GetSession(ctx, e.rec.SessionID(), e.userID(t))
	require.NoError(t, err)
	require.Empty(t, stored.Messages)
}

func TestStreamFailureBeforeFirstFragment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	e.gateway.push(nil, errors.New("provider down"))
	require.Error(t, e.rec.Send(ctx, "Hello"))
	require.Equal(t, client.PhaseActive, e.rec.Phase())

	// The empty placeholder turns into a visible failure bubble.
	messages := e.rec.Messages()
	require.NotEmpty(t, messages[len(messages)-1].Content)
	require.Equal(t, chat.RoleAssistant, messages[len(messages)-1].Role)
}

func TestDeleteBoundSessionThenResolve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))
	boundID := e.rec.SessionID()

	require.NoError(t, e.rec.DeleteSession(ctx, boundID))
	require.Equal(t, client.PhaseResolving, e.rec.Phase())
	require.Empty(t, e.rec.SessionID())

	require.NoError(t, e.rec.Resolve(ctx))
	require.Equal(t, client.PhaseActive, e.rec.Phase())
	require.NotEqual(t, boundID, e.rec.SessionID())
}

func TestLogoutClearsIdentity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rec.Register(ctx, "a@b.c", "hunter2", "alice"))

	require.NoError(t, e.rec.Logout())
	require.Equal(t, client.PhaseUnauthenticated, e.rec.Phase())
	require.Empty(t, e.rec.Messages())
	require.Empty(t, e.rec.SessionID())

	state, err := client.NewStateFile(e.statePath).Load()
	require.NoError(t, err)
	require.Equal(t, client.LocalState{}, state)

	// A fresh start without a credential stays logged out.
	resumed := newReconciler(e.srv.URL, e.statePath)
	require.NoError(t, resumed.Start(ctx))
	require.Equal(t, client.PhaseUnauthenticated, resumed.Phase())
}
