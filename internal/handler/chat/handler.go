package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/middleware"
	chatModel "github.com/Chauhan0050r/GPT-clone/internal/model/chat"
	"github.com/Chauhan0050r/GPT-clone/internal/service/ai"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
	"github.com/Chauhan0050r/GPT-clone/pkg/utils"
)

// TerminalSentinel marks the end of a successful stream.
const TerminalSentinel = "[DONE]"

// Gateway produces a fragment stream for a conversation.
type Gateway interface {
	Stream(ctx context.Context, conversation []chatModel.Turn) (ai.TokenStream, error)
}

// Handler is the streaming relay: it forwards gateway fragments to the client
// over an event stream and persists the completed exchange.
type Handler struct {
	gateway  Gateway
	sessions store.SessionStore
	log      *zap.Logger
	timeout  time.Duration
}

// New creates the relay handler. timeout bounds a single gateway call so a
// stalled provider cannot hold the connection forever.
func New(gateway Gateway, sessions store.SessionStore, log *zap.Logger, timeout time.Duration) *Handler {
	return &Handler{
		gateway:  gateway,
		sessions: sessions,
		log:      log,
		timeout:  timeout,
	}
}

type chatRequest struct {
	Conversation []chatModel.Turn `json:"conversation"`
	SessionID    string           `json:"sessionId"`
}

// fragmentEvent is the per-fragment payload; errorEvent is sent in-band when
// the gateway fails after the stream is already open.
type fragmentEvent struct {
	Content string `json:"content"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// HandleChat serves POST /api/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid conversation format")
		return
	}
	if err := validateConversation(req.Conversation); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing sessionId")
		return
	}

	// Resolve ownership before any streaming starts.
	if _, err := h.sessions.GetSession(r.Context(), req.SessionID, claims.UserID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.Error("failed to resolve session", zap.String("session_id", req.SessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h.log.Info("chat stream started",
		zap.String("session_id", req.SessionID),
		zap.String("user_id", claims.UserID))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stream, err := h.gateway.Stream(ctx, req.Conversation)
	if err != nil {
		h.log.Error("gateway refused conversation", zap.String("session_id", req.SessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Streaming error")
		return
	}
	defer stream.Close()

	// The first fragment is received before the response commits to
	// event-stream framing, so a gateway that dies immediately still gets a
	// synchronous error status.
	first, err := stream.Recv()
	if err != nil && err != io.EOF {
		if r.Context().Err() != nil {
			h.logDisconnect(req.SessionID, err)
			return
		}
		h.log.Error("gateway failed before first fragment", zap.String("session_id", req.SessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Streaming error")
		return
	}

	utils.SetupSSEHeaders(w)

	var reply strings.Builder
	if err == nil {
		reply.WriteString(first)
		if writeErr := utils.WriteSSEJSON(w, flusher, fragmentEvent{Content: first}); writeErr != nil {
			h.logDisconnect(req.SessionID, writeErr)
			return
		}

		// One fragment ahead of the client write, never more: the next Recv
		// only happens after the previous event is flushed.
		for {
			fragment, recvErr := stream.Recv()
			if recvErr == io.EOF {
				break
			}
			if recvErr != nil {
				if ctx.Err() != nil && r.Context().Err() != nil {
					h.logDisconnect(req.SessionID, recvErr)
					return
				}
				// The status line is long gone; the only channel left for the
				// failure is the stream itself.
				h.log.Error("gateway failed mid-stream", zap.String("session_id", req.SessionID), zap.Error(recvErr))
				_ = utils.WriteSSEJSON(w, flusher, errorEvent{Error: "Streaming failed"})
				return
			}

			reply.WriteString(fragment)
			if writeErr := utils.WriteSSEJSON(w, flusher, fragmentEvent{Content: fragment}); writeErr != nil {
				h.logDisconnect(req.SessionID, writeErr)
				return
			}
		}
	}

	h.persistExchange(r.Context(), req.SessionID, claims.UserID, req.Conversation, reply.String())

	if writeErr := utils.WriteSSERaw(w, flusher, TerminalSentinel); writeErr != nil {
		h.logDisconnect(req.SessionID, writeErr)
		return
	}

	h.log.Info("chat stream completed",
		zap.String("session_id", req.SessionID),
		zap.Int("reply_length", reply.Len()))
}

// persistExchange appends the user turn and the assembled assistant reply as
// one atomic write. Failures are logged, not surfaced: the client already
// holds the full reply.
func (h *Handler) persistExchange(ctx context.Context, sessionID, userID string, conversation []chatModel.Turn, reply string) {
	last := conversation[len(conversation)-1]
	if last.Role != chatModel.RoleUser {
		return
	}

	messages := []chatModel.Message{
		{Role: chatModel.RoleUser, Content: last.Content},
		{Role: chatModel.RoleAssistant, Content: reply},
	}
	if err := h.sessions.AppendMessages(ctx, sessionID, userID, messages); err != nil {
		h.log.Error("failed to persist exchange",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (h *Handler) logDisconnect(sessionID string, err error) {
	h.log.Info("client closed connection", zap.String("session_id", sessionID), zap.Error(err))
}

func validateConversation(conversation []chatModel.Turn) error {
	if len(conversation) == 0 {
		return errors.New("Invalid conversation format")
	}
	for _, turn := range conversation {
		if !chatModel.ValidRole(turn.Role) || turn.Content == "" {
			return errors.New("Invalid conversation format")
		}
	}
	return nil
}
