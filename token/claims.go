package token

// AuthStage records how far a session has progressed through
// authentication. A token is never mutated in place: advancing the
// stage mints a fresh token with the same identity claims.
type AuthStage string

const (
	// StagePasswordOK means the primary credential was verified. MFA
	// is still pending if the subject's role requires it.
	StagePasswordOK AuthStage = "password_ok"
	// StageMFAOK means the second factor was also verified - the
	// session is fully authenticated.
	StageMFAOK AuthStage = "mfa_ok"
)

// Claims are the decoded contents of a session token. All fields
// beyond Subject are optional at the wire level; Subject is validated
// explicitly and a token without it is always rejected.
type Claims struct {
	Subject    string    `json:"sub"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role,omitempty"`
	TenantID   string    `json:"tenant_id,omitempty"`
	TenantSlug string    `json:"tenant_slug,omitempty"`
	Stage      AuthStage `json:"auth_stage"`
	TokenID    string    `json:"jti,omitempty"`
	ExpiresAt  int64     `json:"exp,omitempty"`
	IssuedAt   int64     `json:"iat,omitempty"`
	Issuer     string    `json:"iss,omitempty"`
}

// FullyAuthenticated reports whether the second factor was verified.
func (c *Claims) FullyAuthenticated() bool {
	return c.Stage == StageMFAOK
}
