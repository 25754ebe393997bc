package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
)

// RequireAuth validates the Bearer token and injects the claims and the
// raw token into the request context. Every failure mode produces the
// same unauthenticated response.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken, ok := bearerToken(r)
			if !ok {
				writeAppError(w, apperrors.ErrUnauthenticated, "missing or malformed Authorization header")
				return
			}

			claims, err := s.tokens.Validate(rawToken)
			if err != nil {
				writeAppError(w, apperrors.ErrUnauthenticated, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			ctx = context.WithValue(ctx, ContextKeyRawToken, rawToken)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireMFA rejects tokens stuck at the password stage when the
// subject's role demands a second factor. The response code is distinct
// from unauthenticated so clients know to continue the challenge rather
// than log in again. Must be chained after RequireAuth.
func (s *Server) RequireMFA() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAppError(w, apperrors.ErrUnauthenticated, "no authenticated subject")
				return
			}
			if !claims.FullyAuthenticated() && s.policies.Required(r.Context(), claims.Role) {
				writeAppError(w, apperrors.ErrMFARequired, "second factor verification required")
				return
			}
			next(w, r)
		}
	}
}

// RequireRole allows only subjects whose token role is in the given
// set. Must be chained after RequireAuth.
func (s *Server) RequireRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(string(role))] = struct{}{}
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAppError(w, apperrors.ErrUnauthenticated, "no authenticated subject")
				return
			}
			if _, permitted := allowed[claims.Role]; !permitted {
				writeAppError(w, apperrors.ErrForbidden, "insufficient role")
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
