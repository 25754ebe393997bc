package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/auth"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/datastore"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/internal/config"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy/repofakes"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/realtime"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/server"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/telemetry/telemetryfakes"
	tenantrepofakes "github.com/OliverPistillo/Doflow-PaaS-sub003/tenants/repofakes"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token/denylist"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
	userrepofake "github.com/OliverPistillo/Doflow-PaaS-sub003/users/repofake"
)

const testMFACode = "123456"

type fixture struct {
	server   *server.Server
	tokens   *token.Manager
	users    *userrepofake.FakeUserRepo
	policies *policy.Store
	emitter  *telemetryfakes.FakeEmitter
	hub      *realtime.Hub
	registry *datastore.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userRepo := userrepofake.NewFakeUserRepo()
	policyStore := policy.NewStore(policyrepofakes.NewFakePolicyRepo())
	tokens := token.New(token.NewHMACSigner("test-secret"), token.WithDenylist(denylist.NewInMemory()))
	hub := realtime.NewHub()
	emitter := telemetryfakes.NewFakeEmitter()
	registry := datastore.NewRegistry(func(ctx context.Context, schema string) (*datastore.Handle, error) {
		return &datastore.Handle{Schema: schema}, nil
	})

	repos := auth.Repos{Users: userRepo, Tenants: tenantrepofakes.NewFakeTenantRepo()}
	authService, err := auth.NewService(repos, tokens, policyStore,
		auth.WithCodeVerifier(auth.CodeVerifierFunc(func(_ *users.User, code string) bool {
			return code == testMFACode
		})))
	require.NoError(t, err)

	srv, err := server.New(config.New(), repos, registry, tokens, policyStore, hub,
		server.WithEmitter(emitter), server.WithAuthService(authService))
	require.NoError(t, err)

	return &fixture{
		server:   srv,
		tokens:   tokens,
		users:    userRepo,
		policies: policyStore,
		emitter:  emitter,
		hub:      hub,
		registry: registry,
	}
}

func (f *fixture) addUser(t *testing.T, email, password string, role users.RoleType) *users.User {
	t.Helper()
	hash, err := users.HashPassword(password)
	require.NoError(t, err)
	user := &users.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     "tenant-1",
		TenantSlug:   "acme",
	}
	require.NoError(t, f.users.Upsert(user))
	return user
}

func (f *fixture) issue(t *testing.T, user *users.User, stage token.AuthStage) string {
	t.Helper()
	raw, err := f.tokens.Issue(token.Identity{
		SubjectID:  user.ID,
		Email:      user.Email,
		Role:       string(user.Role),
		TenantID:   user.TenantID,
		TenantSlug: user.TenantSlug,
	}, stage)
	require.NoError(t, err)
	return raw
}

func doJSON(t *testing.T, handler http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]any](t, rec)["error"].(string)
}

func TestLogin_StagesByPolicyAndEnrollment(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "owner@acme.test", "Str0ng-Passw0rd!", users.RoleOwner)
	f.addUser(t, "viewer@acme.test", "Str0ng-Passw0rd!", users.RoleViewer)

	t.Run("privileged role gets a staged token", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodPost, server.RouteAuthLogin, "", map[string]string{
			"email": "owner@acme.test", "password": "Str0ng-Passw0rd!",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		require.Equal(t, "password_ok", body["stage"])
		require.Equal(t, true, body["mfa_required"])
		require.NotEmpty(t, body["token"])
	})

	t.Run("unprivileged role is fully authenticated at once", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodPost, server.RouteAuthLogin, "", map[string]string{
			"email": "viewer@acme.test", "password": "Str0ng-Passw0rd!",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		require.Equal(t, "mfa_ok", body["stage"])
		require.Equal(t, false, body["mfa_required"])
	})

	t.Run("undecodable body is a bad request, not an auth failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_request", errorCode(t, rec))
	})

	t.Run("wrong password and unknown user fail identically", func(t *testing.T) {
		wrongPassword := doJSON(t, f.server, http.MethodPost, server.RouteAuthLogin, "", map[string]string{
			"email": "owner@acme.test", "password": "nope",
		})
		unknownUser := doJSON(t, f.server, http.MethodPost, server.RouteAuthLogin, "", map[string]string{
			"email": "ghost@acme.test", "password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		require.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		require.Equal(t, errorCode(t, wrongPassword), errorCode(t, unknownUser))
	})
}

func TestMFA_AdvancesStagedToken(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "owner@acme.test", "Str0ng-Passw0rd!", users.RoleOwner)
	staged := f.issue(t, owner, token.StagePasswordOK)

	t.Run("wrong code is rejected", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodPost, server.RouteAuthMFA, staged, map[string]string{"code": "000000"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthenticated", errorCode(t, rec))
	})

	t.Run("correct code mints an mfa_ok token", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodPost, server.RouteAuthMFA, staged, map[string]string{"code": testMFACode})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		require.Equal(t, "mfa_ok", body["stage"])

		claims, err := f.tokens.Validate(body["token"].(string))
		require.NoError(t, err)
		require.Equal(t, owner.ID, claims.Subject)
		require.True(t, claims.FullyAuthenticated())
	})
}

func TestAdminPolicyEndpoint_AuthGating(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "owner@acme.test", "Str0ng-Passw0rd!", users.RoleOwner)
	viewer := f.addUser(t, "viewer@acme.test", "Str0ng-Passw0rd!", users.RoleViewer)

	t.Run("no token", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodGet, server.RouteAdminMFARoles, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthenticated", errorCode(t, rec))
	})

	t.Run("staged token is rejected with a distinct code", func(t *testing.T) {
		staged := f.issue(t, owner, token.StagePasswordOK)
		rec := doJSON(t, f.server, http.MethodGet, server.RouteAdminMFARoles, staged, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "mfa_required", errorCode(t, rec))
	})

	t.Run("unprivileged role is forbidden", func(t *testing.T) {
		fully := f.issue(t, viewer, token.StageMFAOK)
		rec := doJSON(t, f.server, http.MethodGet, server.RouteAdminMFARoles, fully, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "forbidden", errorCode(t, rec))
	})

	t.Run("privileged mfa_ok token reads the defaults", func(t *testing.T) {
		fully := f.issue(t, owner, token.StageMFAOK)
		rec := doJSON(t, f.server, http.MethodGet, server.RouteAdminMFARoles, fully, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			MFARoles policy.MFARoles `json:"mfa_roles"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, policy.Defaults(), body.MFARoles)
	})
}

func TestAdminPolicyEndpoint_WriteNormalization(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "owner@acme.test", "Str0ng-Passw0rd!", users.RoleOwner)
	fully := f.issue(t, owner, token.StageMFAOK)

	rec := doJSON(t, f.server, http.MethodPut, server.RouteAdminMFARoles, fully, map[string]any{
		"Owner":  "true",
		"":       "true",
		"Viewer": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		MFARoles policy.MFARoles `json:"mfa_roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, policy.MFARoles{"owner": true, "viewer": false}, body.MFARoles)

	// The write is visible through the read path, merged over defaults.
	effective := f.policies.Get(context.Background())
	require.True(t, effective["owner"])
	require.False(t, effective["viewer"])
	require.True(t, effective["admin"], "untouched defaults survive the merge")
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "owner@acme.test", "Str0ng-Passw0rd!", users.RoleOwner)
	raw := f.issue(t, owner, token.StageMFAOK)

	rec := doJSON(t, f.server, http.MethodPost, server.RouteAuthLogout, raw, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := f.tokens.Validate(raw)
	require.Error(t, err)
}

func TestTenantMiddleware_EchoesResolvedTenant(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "viewer@acme.test", "Str0ng-Passw0rd!", users.RoleViewer)

	t.Run("well-formed header is normalized and echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, loginBody(t, "viewer@acme.test", "Str0ng-Passw0rd!"))
		req.Header.Set(server.TenantHeader, "  ACME  ")
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Equal(t, "acme", rec.Header().Get(server.TenantHeader))
	})

	t.Run("reserved word is not a tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, loginBody(t, "viewer@acme.test", "Str0ng-Passw0rd!"))
		req.Header.Set(server.TenantHeader, "admin")
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Empty(t, rec.Header().Get(server.TenantHeader))
	})
}

func loginBody(t *testing.T, email, password string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{"email": email, "password": password}))
	return &buf
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := doJSON(t, f.server, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[map[string]any](t, rec)["status"])
}

func TestLoopGuard_BreaksRedirectChains(t *testing.T) {
	f := newFixture(t)

	get := func(count int) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, loginBody(t, "nobody@acme.test", "x"))
		if count > 0 {
			req.AddCookie(&http.Cookie{Name: server.RedirectCountCookie, Value: strconv.Itoa(count)})
		}
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		return rec
	}

	t.Run("below threshold passes through", func(t *testing.T) {
		for count := 0; count < 5; count++ {
			rec := get(count)
			require.NotEqual(t, http.StatusTooManyRequests, rec.Code, fmt.Sprintf("count %d must pass", count))
		}
	})

	t.Run("at threshold the chain is cut", func(t *testing.T) {
		rec := get(5)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "loop_detected", errorCode(t, rec))

		events := f.emitter.Events()
		require.NotEmpty(t, events)
		require.Equal(t, "redirect_loop_detected", events[len(events)-1].Type)

		cleared := findCookie(t, rec, server.RedirectCountCookie)
		require.Equal(t, -1, cleared.MaxAge, "counter cookie is cleared on rejection")
	})

	t.Run("terminal response clears a live counter", func(t *testing.T) {
		rec := get(3)
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
		cleared := findCookie(t, rec, server.RedirectCountCookie)
		require.Equal(t, -1, cleared.MaxAge)
	})

	t.Run("garbage counter resets instead of rejecting", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, loginBody(t, "nobody@acme.test", "x"))
		req.AddCookie(&http.Cookie{Name: server.RedirectCountCookie, Value: "over-9000"})
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestLoopGuard_RedirectIncrementsCounter(t *testing.T) {
	f := newFixture(t)

	// Register a redirecting route through the same middleware chain the
	// real routes use.
	f.server.RegisterRouteHandler("GET /bounce", server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/bounce", http.StatusFound)
	}, f.server.CoreMiddleware()...))

	count := 0
	var rec *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/bounce", nil)
		if count > 0 {
			req.AddCookie(&http.Cookie{Name: server.RedirectCountCookie, Value: strconv.Itoa(count)})
		}
		rec = httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		if rec.Code == http.StatusFound {
			cookie := findCookie(t, rec, server.RedirectCountCookie)
			count, _ = strconv.Atoi(cookie.Value)
		}
	}

	// Five redirects ran; the sixth request tripped the breaker.
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, 5, count)
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %q not set on response", name)
	return nil
}

func TestAdminTenants_CreateAndList(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "owner@acme.test", "Str0ng-Passw0rd!", users.RoleOwner)
	fully := f.issue(t, owner, token.StageMFAOK)

	t.Run("invalid slug is rejected", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodPost, server.RouteAdminTenants, fully, map[string]string{
			"name": "Reserved Co", "slug": "admin",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_tenant", errorCode(t, rec))
	})

	t.Run("create normalizes the slug and warms the schema pool", func(t *testing.T) {
		before := f.registry.Size()
		rec := doJSON(t, f.server, http.MethodPost, server.RouteAdminTenants, fully, map[string]string{
			"name": "Globex Corp", "slug": "  GLOBEX  ",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		created := decodeBody[map[string]any](t, rec)
		require.Equal(t, "globex", created["slug"])
		require.Equal(t, "tenant_globex", created["schema"])
		require.Equal(t, before+1, f.registry.Size())
	})

	t.Run("list returns the created tenant", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodGet, server.RouteAdminTenants, fully, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[map[string][]map[string]any](t, rec)
		require.Len(t, body["tenants"], 1)
		require.Equal(t, "globex", body["tenants"][0]["slug"])
	})

	t.Run("negative paging values degrade to defaults", func(t *testing.T) {
		rec := doJSON(t, f.server, http.MethodGet, server.RouteAdminTenants+"?offset=-1&limit=-5", fully, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[map[string][]map[string]any](t, rec)
		require.Len(t, body["tenants"], 1)
	})
}
