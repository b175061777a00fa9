package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/jwt"
)

type claimsContextKey struct{}

// Authenticator is the slice of *authcore.Engine a guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*jwt.Claims, error)
	AuthenticateSession(ctx context.Context, accessToken string) (*jwt.Claims, error)
}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// WithClaims stores claims in ctx. Guards call it; tests of downstream
// handlers can too.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard rejects requests without a valid, unexpired access token.
func Guard(engine Authenticator) func(http.Handler) http.Handler {
	if engine == nil {
		return guard(nil)
	}
	return guard(engine.Authenticate)
}

func guard(check func(context.Context, string) (*jwt.Claims, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if check == nil {
				unauthorized(w, authcore.CodeInvalidToken)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, authcore.CodeInvalidToken)
				return
			}

			claims, err := check(r.Context(), token)
			if err != nil {
				code := authcore.CodeInvalidToken
				if errors.Is(err, authcore.ErrTokenExpired) {
					code = authcore.CodeTokenExpired
				}
				if errors.Is(err, authcore.ErrInternal) {
					http.Error(w, string(authcore.CodeInternal), http.StatusInternalServerError)
					return
				}
				unauthorized(w, code)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after a guard. It answers 403 unless the claims
// carry the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			unauthorized(w, authcore.CodeInvalidToken)
			return
		}
		if !claims.IsAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, code authcore.Code) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+string(code)+`"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
