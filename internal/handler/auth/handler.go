package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/middleware"
	authService "github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/pkg/utils"
)

// Handler exposes registration and login.
type Handler struct {
	authSvc *authService.Service
	log     *zap.Logger
}

// New creates the auth handler.
func New(authSvc *authService.Service, log *zap.Logger) *Handler {
	return &Handler{authSvc: authSvc, log: log}
}

// RegisterRoutes mounts the auth endpoints. requireAuth protects /me.
func (h *Handler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.With(requireAuth).Get("/me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" || payload.Nickname == "" {
		utils.RespondError(w, http.StatusBadRequest, "All fields required")
		return
	}

	cred, err := h.authSvc.Register(r.Context(), payload.Email, payload.Password, payload.Nickname)
	if err != nil {
		if errors.Is(err, authService.ErrEmailTaken) {
			utils.RespondError(w, http.StatusConflict, "Email already registered")
			return
		}
		h.log.Error("registration failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	utils.RespondJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.authSvc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, authService.ErrInvalidCredentials) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		h.log.Error("login failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	utils.RespondJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"userId":   claims.UserID,
		"nickname": claims.Nickname,
	})
}
