package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/config"
	authHandler "github.com/Chauhan0050r/GPT-clone/internal/handler/auth"
	"github.com/Chauhan0050r/GPT-clone/internal/middleware"
	auth "github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/internal/store/memory"
)

func newRouter() http.Handler {
	authSvc := auth.NewService(memory.New(), config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})

	r := chi.NewRouter()
	r.Route("/api/auth", func(ar chi.Router) {
		authHandler.New(authSvc, zap.NewNop()).RegisterRoutes(ar, middleware.RequireAuth(authSvc))
	})
	return r
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginMeFlow(t *testing.T) {
	router := newRouter()

	rec := post(router, "/api/auth/register", `{"email":"a@b.c","password":"hunter2","nickname":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: unexpected status %d body=%s", rec.Code, rec.Body.String())
	}
	var cred struct {
		Token    string `json:"token"`
		Nickname string `json:"nickname"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cred); err != nil {
		t.Fatalf("register: decode err: %v", err)
	}
	if cred.Token == "" || cred.Nickname != "alice" {
		t.Fatalf("register: unexpected credential %+v", cred)
	}

	rec = post(router, "/api/auth/login", `{"email":"a@b.c","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: unexpected status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("me: unexpected status %d", meRec.Code)
	}
	var me struct {
		UserID   string `json:"userId"`
		Nickname string `json:"nickname"`
	}
	if err := json.Unmarshal(meRec.Body.Bytes(), &me); err != nil {
		t.Fatalf("me: decode err: %v", err)
	}
	if me.UserID == "" || me.Nickname != "alice" {
		t.Fatalf("me: unexpected payload %+v", me)
	}
}

func TestRegisterValidation(t *testing.T) {
	router := newRouter()

	rec := post(router, "/api/auth/register", `{"email":"a@b.c","password":"","nickname":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing field: expected 400, got %d", rec.Code)
	}

	post(router, "/api/auth/register", `{"email":"a@b.c","password":"hunter2","nickname":"alice"}`)
	rec = post(router, "/api/auth/register", `{"email":"a@b.c","password":"other","nickname":"bob"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newRouter()
	post(router, "/api/auth/register", `{"email":"a@b.c","password":"hunter2","nickname":"alice"}`)

	rec := post(router, "/api/auth/login", `{"email":"a@b.c","password":"wrong"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
