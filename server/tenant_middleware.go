package server

import (
	"context"
	"net/http"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/tenants"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyTenant stores the resolved tenant context
	ContextKeyTenant ContextKey = "tenant"
	// ContextKeyClaims stores validated token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyRawToken stores the raw bearer token for revocation
	ContextKeyRawToken ContextKey = "raw_token"
)

// TenantFromContext returns the tenant context attached by
// TenantMiddleware, or the none context when resolution failed.
func TenantFromContext(ctx context.Context) tenants.TenantContext {
	if tc, ok := ctx.Value(ContextKeyTenant).(tenants.TenantContext); ok {
		return tc
	}
	return tenants.None()
}

// ClaimsFromContext returns the claims attached by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

// TenantMiddleware resolves the request's tenant from the propagated
// header or the first path segment and attaches the result to the
// request context. The header value is client-supplied and therefore
// re-validated; the resolved slug is echoed back on the response so
// downstream hops see a trusted value. An unresolved tenant is not an
// error at this layer.
func (s *Server) TenantMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc := s.resolver.Resolve(r.URL.Path, r.Header.Get(TenantHeader))

		if tc.Resolved() {
			w.Header().Set(TenantHeader, tc.TenantID)
			r.Header.Set(TenantHeader, tc.TenantID)
		} else {
			r.Header.Del(TenantHeader)
		}

		ctx := context.WithValue(r.Context(), ContextKeyTenant, tc)
		next(w, r.WithContext(ctx))
	}
}
