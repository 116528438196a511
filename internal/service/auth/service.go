package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Chauhan0050r/GPT-clone/internal/config"
	"github.com/Chauhan0050r/GPT-clone/internal/model/user"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims is the identity a verified bearer token resolves to.
type Claims struct {
	UserID   string
	Nickname string
}

// Credential is the issued token plus the display name the client shows.
type Credential struct {
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
}

// Service issues and verifies bearer credentials.
type Service struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
}

// NewService wires the auth service to a user store.
func NewService(users store.UserStore, cfg config.AuthConfig) *Service {
	return &Service{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
	}
}

// Register creates an account and signs a credential for it.
func (s *Service) Register(ctx context.Context, email, password, nickname string) (Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Nickname:     nickname,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return Credential{}, ErrEmailTaken
		}
		return Credential{}, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(u)
}

// Login verifies a password and signs a credential. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Credential, error) {
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return Credential{}, ErrInvalidCredentials
		}
		return Credential{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Credential{}, ErrInvalidCredentials
	}

	return s.issue(u)
}

// VerifyToken validates a bearer token and extracts its claims.
func (s *Service) VerifyToken(tokenStr string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	userID, _ := claims["userId"].(string)
	if userID == "" {
		return Claims{}, ErrInvalidToken
	}
	nickname, _ := claims["nickname"].(string)

	return Claims{UserID: userID, Nickname: nickname}, nil
}

func (s *Service) issue(u user.User) (Credential, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":   u.ID,
		"nickname": u.Nickname,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Credential{Token: signed, Nickname: u.Nickname}, nil
}
