package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/auth"
	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
	policyrepofakes "github.com/OliverPistillo/Doflow-PaaS-sub003/policy/repofakes"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
	userrepofake "github.com/OliverPistillo/Doflow-PaaS-sub003/users/repofake"
)

type fixture struct {
	service *auth.Service
	tokens  *token.Manager
	users   *userrepofake.FakeUserRepo
}

func newFixture(t *testing.T, options ...auth.ServiceOption) *fixture {
	t.Helper()
	userRepo := userrepofake.NewFakeUserRepo()
	tokens := token.New(token.NewHMACSigner("test-secret"))
	policies := policy.NewStore(policyrepofakes.NewFakePolicyRepo())

	service, err := auth.NewService(auth.Repos{Users: userRepo}, tokens, policies, options...)
	require.NoError(t, err)
	return &fixture{service: service, tokens: tokens, users: userRepo}
}

func (f *fixture) addUser(t *testing.T, role users.RoleType, mfType users.MFAuthType) *users.User {
	t.Helper()
	hash, err := users.HashPassword("Sup3rSecret")
	require.NoError(t, err)
	user := &users.User{
		Email:        "jo@acme.test",
		PasswordHash: hash,
		Role:         role,
		TenantID:     "tenant-1",
		TenantSlug:   "acme",
		MFType:       mfType,
		MFASecret:    "JBSWY3DPEHPK3PXP",
	}
	require.NoError(t, f.users.Upsert(user))
	return user
}

func TestService_LoginIssuesPasswordStageForPrivilegedRole(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, users.RoleOwner, users.MFNone)

	result, err := f.service.Login(context.Background(), "jo@acme.test", "Sup3rSecret")
	require.NoError(t, err)
	require.True(t, result.MFARequired, "owner requires MFA by default policy")
	require.Equal(t, token.StagePasswordOK, result.Stage)

	claims, err := f.tokens.Validate(result.Token)
	require.NoError(t, err)
	require.Equal(t, "owner", claims.Role)
	require.Equal(t, "acme", claims.TenantSlug)
	require.False(t, claims.FullyAuthenticated())
}

func TestService_LoginIssuesFullStageForUnprotectedRole(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, users.RoleViewer, users.MFNone)

	result, err := f.service.Login(context.Background(), "jo@acme.test", "Sup3rSecret")
	require.NoError(t, err)
	require.False(t, result.MFARequired)
	require.Equal(t, token.StageMFAOK, result.Stage)
}

func TestService_LoginHonoursUserEnrolledMFA(t *testing.T) {
	// A viewer would not need MFA by policy, but has enrolled a second
	// factor - the session must still go through the challenge.
	f := newFixture(t)
	f.addUser(t, users.RoleViewer, users.MFAuthenticator)

	result, err := f.service.Login(context.Background(), "jo@acme.test", "Sup3rSecret")
	require.NoError(t, err)
	require.True(t, result.MFARequired)
	require.Equal(t, token.StagePasswordOK, result.Stage)
}

func TestService_LoginFailuresAreUniform(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, users.RoleUser, users.MFNone)

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.service.Login(context.Background(), "ghost@acme.test", "Sup3rSecret")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.Login(context.Background(), "jo@acme.test", "wrong")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}

func TestService_LoginRejectsBlockedUser(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, users.RoleUser, users.MFNone)
	user.Blocked = true
	require.NoError(t, f.users.Upsert(user))

	_, err := f.service.Login(context.Background(), "jo@acme.test", "Sup3rSecret")
	require.ErrorIs(t, err, apperrors.ErrUserBlocked)
}

func TestService_VerifyMFAAdvancesStage(t *testing.T) {
	verifier := auth.CodeVerifierFunc(func(u *users.User, code string) bool {
		return code == "123456"
	})
	f := newFixture(t, auth.WithCodeVerifier(verifier))
	f.addUser(t, users.RoleOwner, users.MFAuthenticator)

	result, err := f.service.Login(context.Background(), "jo@acme.test", "Sup3rSecret")
	require.NoError(t, err)
	claims, err := f.tokens.Validate(result.Token)
	require.NoError(t, err)

	t.Run("wrong code", func(t *testing.T) {
		_, err := f.service.VerifyMFA(context.Background(), claims, "000000")
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("correct code", func(t *testing.T) {
		advanced, err := f.service.VerifyMFA(context.Background(), claims, "123456")
		require.NoError(t, err)

		newClaims, err := f.tokens.Validate(advanced)
		require.NoError(t, err)
		require.True(t, newClaims.FullyAuthenticated())
		require.Equal(t, claims.Subject, newClaims.Subject)
	})
}

func TestService_LoginUpdatesLastLogin(t *testing.T) {
	loginAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	f := newFixture(t, auth.WithNowTime(func() time.Time { return loginAt }))
	user := f.addUser(t, users.RoleViewer, users.MFNone)

	_, err := f.service.Login(context.Background(), "jo@acme.test", "Sup3rSecret")
	require.NoError(t, err)

	stored, err := f.users.GetByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, loginAt, stored.LastLogin)
}
