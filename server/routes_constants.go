package server

const (
	RouteAuthLogin  = "/auth/login"
	RouteAuthMFA    = "/auth/mfa"
	RouteAuthLogout = "/auth/logout"

	RouteAdminMFARoles = "/admin/security/mfa-roles"
	RouteAdminTenants  = "/admin/tenants"

	RouteRealtime = "/ws"
	RouteHealthz  = "/healthz"
)

// TenantHeader carries the tenant identifier on inbound requests and is
// echoed back with the resolved value. Inbound values are untrusted and
// re-validated against the slug grammar on every request.
const TenantHeader = "X-Tenant-ID"

// RedirectCountCookie holds the client-side redirect counter read by the
// loop guard. The value is not signed; a tampered counter can only trip
// the breaker early.
const RedirectCountCookie = "redirect_count"
