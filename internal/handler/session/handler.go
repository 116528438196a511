package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/middleware"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
	"github.com/Chauhan0050r/GPT-clone/pkg/utils"
)

// Handler exposes the session CRUD surface. Every route is owner-scoped via
// the bearer credential.
type Handler struct {
	sessions store.SessionStore
	log      *zap.Logger
}

// New creates the session handler.
func New(sessions store.SessionStore, log *zap.Logger) *Handler {
	return &Handler{sessions: sessions, log: log}
}

// RegisterRoutes mounts the session endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{sessionID}", h.handleGet)
	r.Patch("/{sessionID}", h.handleRename)
	r.Delete("/{sessionID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())

	summaries, err := h.sessions.ListSessions(r.Context(), claims.UserID)
	if err != nil {
		h.log.Error("failed to list sessions", zap.String("user_id", claims.UserID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())

	var payload struct {
		SessionName string `json:"sessionName"`
	}
	// Body is optional: an empty body creates a session with the default name.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	session, err := h.sessions.CreateSession(r.Context(), claims.UserID, payload.SessionName)
	if err != nil {
		h.log.Error("failed to create session", zap.String("user_id", claims.UserID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessions.GetSession(r.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.Error("failed to fetch session", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.NewName == "" {
		utils.RespondError(w, http.StatusBadRequest, "Invalid session name")
		return
	}

	if err := h.sessions.RenameSession(r.Context(), sessionID, claims.UserID, payload.NewName); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.Error("failed to rename session", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to update session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.sessions.DeleteSession(r.Context(), sessionID, claims.UserID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.Error("failed to delete session", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
