package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authHandler "github.com/Chauhan0050r/GPT-clone/internal/handler/auth"
	chatHandler "github.com/Chauhan0050r/GPT-clone/internal/handler/chat"
	sessionHandler "github.com/Chauhan0050r/GPT-clone/internal/handler/session"
	"github.com/Chauhan0050r/GPT-clone/internal/middleware"
	authService "github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(authSvc *authService.Service, st store.SessionStore, gateway chatHandler.Gateway, log *zap.Logger, chatTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	requireAuth := middleware.RequireAuth(authSvc)

	authH := authHandler.New(authSvc, log)
	sessionH := sessionHandler.New(st, log)
	chatH := chatHandler.New(gateway, st, log, chatTimeout)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			authH.RegisterRoutes(ar, requireAuth)
		})

		api.Route("/sessions", func(sr chi.Router) {
			sr.Use(requireAuth)
			sessionH.RegisterRoutes(sr)
		})

		api.With(requireAuth).Post("/chat", chatH.HandleChat)
	})

	return r
}
