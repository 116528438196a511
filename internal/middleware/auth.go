package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/pkg/utils"
)

// TokenVerifier resolves a bearer token to its claims.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Claims, error)
}

type claimsKey struct{}

// RequireAuth rejects requests without a valid bearer credential and stores
// the resolved claims in the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				utils.RespondError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a context carrying verified claims. Handlers under test
// use it to skip the HTTP middleware.
func WithClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom extracts the claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}
