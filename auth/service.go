package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/tenants"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
)

// Repos holds the repository dependencies shared across services.
type Repos struct {
	Users   users.UserRepo // Repository for user data
	Tenants tenants.Repo   // Repository for the tenant directory
}

// CodeVerifier checks a second-factor challenge response for a user.
type CodeVerifier interface {
	Verify(user *users.User, code string) bool
}

// CodeVerifierFunc adapts a function to the CodeVerifier interface.
type CodeVerifierFunc func(user *users.User, code string) bool

func (f CodeVerifierFunc) Verify(user *users.User, code string) bool {
	return f(user, code)
}

// LoginResult carries the freshly issued token and whether the session
// still needs a second factor before it is fully authenticated.
type LoginResult struct {
	Token       string
	Stage       token.AuthStage
	MFARequired bool
}

// Service implements the staged authentication flow: password
// verification issues a token at password_ok; a successful MFA
// challenge re-issues the same identity at mfa_ok.
type Service struct {
	repos    Repos
	tokens   *token.Manager
	policies *policy.Store
	verifier CodeVerifier
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithCodeVerifier overrides how second-factor codes are checked.
func WithCodeVerifier(verifier CodeVerifier) ServiceOption {
	return func(s *Service) {
		s.verifier = verifier
	}
}

// NewService initializes the authentication service with required
// dependencies. Optional configuration can be provided via options.
func NewService(repos Repos, tokens *token.Manager, policies *policy.Store, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if policies == nil {
		return nil, errors.New("[NewService] policy store is required")
	}

	s := &Service{
		repos:    repos,
		tokens:   tokens,
		policies: policies,
		verifier: TOTPVerifier{},
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login checks the primary credential and issues a session token.
// The token stage is password_ok when the user's role requires MFA by
// policy or the user has a second factor configured; mfa_ok otherwise.
// Unknown users and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repos.Users.GetByEmail(email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	mfaRequired := s.policies.Required(ctx, string(user.Role)) || user.MFAConfigured()
	stage := token.StageMFAOK
	if mfaRequired {
		stage = token.StagePasswordOK
	}

	signed, err := s.tokens.Issue(s.identity(user), stage)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] issue token")
	}

	user.LastLogin = s.nowTime()
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] update last login")
	}

	return &LoginResult{Token: signed, Stage: stage, MFARequired: mfaRequired}, nil
}

// VerifyMFA checks the second-factor challenge response against the
// subject of a password_ok token and, on success, mints a fresh mfa_ok
// token with the same identity claims. The original token stays valid
// at its own stage until expiry.
func (s *Service) VerifyMFA(ctx context.Context, claims *token.Claims, code string) (string, error) {
	user, err := s.repos.Users.GetByID(claims.Subject)
	if err != nil {
		return "", apperrors.ErrUnauthenticated
	}
	if user.Blocked {
		return "", apperrors.ErrUserBlocked
	}
	if !s.verifier.Verify(user, code) {
		return "", apperrors.ErrUnauthenticated
	}

	advanced, err := s.tokens.Advance(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Service.VerifyMFA] advance token")
	}
	return advanced, nil
}

// Logout revokes the presented token, best-effort.
func (s *Service) Logout(rawToken string) error {
	return s.tokens.Revoke(rawToken)
}

func (s *Service) identity(user *users.User) token.Identity {
	return token.Identity{
		SubjectID:  user.ID,
		Email:      user.Email,
		Role:       string(user.Role),
		TenantID:   user.TenantID,
		TenantSlug: user.TenantSlug,
	}
}
