package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Chauhan0050r/GPT-clone/internal/config"
	auth "github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/internal/store/memory"
)

func newService() *auth.Service {
	return auth.NewService(memory.New(), config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
}

func TestRegisterIssuesVerifiableCredential(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cred, err := svc.Register(ctx, "a@b.c", "hunter2", "alice")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if cred.Nickname != "alice" {
		t.Fatalf("unexpected nickname: %s", cred.Nickname)
	}

	claims, err := svc.VerifyToken(cred.Token)
	if err != nil {
		t.Fatalf("VerifyToken err: %v", err)
	}
	if claims.UserID == "" {
		t.Fatal("expected a user id in claims")
	}
	if claims.Nickname != "alice" {
		t.Fatalf("unexpected claims nickname: %s", claims.Nickname)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.c", "hunter2", "alice"); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if _, err := svc.Register(ctx, "a@b.c", "other", "bob"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.c", "hunter2", "alice"); err != nil {
		t.Fatalf("Register err: %v", err)
	}

	cred, err := svc.Login(ctx, "a@b.c", "hunter2")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if cred.Nickname != "alice" {
		t.Fatalf("unexpected nickname: %s", cred.Nickname)
	}

	if _, err := svc.Login(ctx, "a@b.c", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@b.c", "hunter2"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := newService()

	if _, err := svc.VerifyToken("not-a-token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	ctx := context.Background()

	other := auth.NewService(memory.New(), config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	cred, err := other.Register(ctx, "a@b.c", "hunter2", "alice")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	svc := newService()
	if _, err := svc.VerifyToken(cred.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	ctx := context.Background()

	svc := auth.NewService(memory.New(), config.AuthConfig{JWTSecret: "test-secret", TokenTTL: -time.Minute})
	cred, err := svc.Register(ctx, "a@b.c", "hunter2", "alice")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	if _, err := svc.VerifyToken(cred.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
