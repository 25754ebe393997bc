package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token/denylist"
)

// Identity is the set of claims carried by every session token.
// Role and tenant ride in the token itself, so authorization is
// stateless: the validator never re-queries identity per request.
type Identity struct {
	SubjectID  string
	Email      string
	Role       string
	TenantID   string
	TenantSlug string
}

// Manager issues and validates signed session tokens.
type Manager struct {
	signer   Signer
	issuer   string
	expiry   time.Duration
	denylist denylist.Denylist
	nowFunc  func() time.Time
}

type ManagerOption func(*Manager)

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expiry = expiry
	}
}

// WithDenylist enables the bounded-cost revocation side lookup.
func WithDenylist(dl denylist.Denylist) ManagerOption {
	return func(m *Manager) {
		m.denylist = dl
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:  signer,
		expiry:  8 * time.Hour,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue mints a signed token for the identity at the given stage.
// Role names are normalized to lowercase before they enter a token.
func (m *Manager) Issue(identity Identity, stage AuthStage) (string, error) {
	if identity.SubjectID == "" {
		return "", errors.New("[Manager.Issue] subject is required")
	}
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss":         m.issuer,
		"sub":         identity.SubjectID,
		"email":       identity.Email,
		"role":        strings.ToLower(identity.Role),
		"tenant_id":   identity.TenantID,
		"tenant_slug": identity.TenantSlug,
		"auth_stage":  string(stage),
		"iat":         now.Unix(),
		"exp":         now.Add(m.expiry).Unix(),
		"jti":         uuid.New().String(),
	}
	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Issue] sign")
	}
	return signed, nil
}

// Advance mints a fresh fully-authenticated token carrying the same
// identity claims. The original token is left untouched.
func (m *Manager) Advance(claims *Claims) (string, error) {
	return m.Issue(Identity{
		SubjectID:  claims.Subject,
		Email:      claims.Email,
		Role:       claims.Role,
		TenantID:   claims.TenantID,
		TenantSlug: claims.TenantSlug,
	}, StageMFAOK)
}

// Validate checks signature and expiry first and extracts claims only
// after verification succeeds. Every failure mode - bad signature,
// expiry, malformed token, missing subject, revoked token - surfaces
// as the same ErrUnauthenticated so callers cannot tell which check
// failed.
func (m *Manager) Validate(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey,
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrUnauthenticated
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}

	claims := decodeClaims(mapClaims)
	if claims.Subject == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if m.denylist != nil && claims.TokenID != "" && m.denylist.IsRevoked(claims.TokenID) {
		return nil, apperrors.ErrUnauthenticated
	}
	return claims, nil
}

// Revoke places a token on the denylist until its natural expiry.
// The token must still validate; revoking garbage is a no-op.
func (m *Manager) Revoke(rawToken string) error {
	if m.denylist == nil {
		return nil
	}
	claims, err := m.Validate(rawToken)
	if err != nil {
		return nil
	}
	if claims.TokenID == "" {
		return nil
	}
	return m.denylist.Revoke(claims.TokenID, time.Unix(claims.ExpiresAt, 0))
}

// decodeClaims maps a verified JWT payload into the typed Claims
// structure. Absent or mistyped optional fields decode to their zero
// values; only the subject is validated by the caller.
func decodeClaims(mapClaims jwt.MapClaims) *Claims {
	claims := &Claims{}
	claims.Subject, _ = mapClaims["sub"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	claims.TenantID, _ = mapClaims["tenant_id"].(string)
	claims.TenantSlug, _ = mapClaims["tenant_slug"].(string)
	claims.TokenID, _ = mapClaims["jti"].(string)
	claims.Issuer, _ = mapClaims["iss"].(string)

	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = strings.ToLower(role)
	}
	if stage, ok := mapClaims["auth_stage"].(string); ok {
		claims.Stage = AuthStage(stage)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = int64(exp)
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = int64(iat)
	}
	return claims
}
