package tenants

import (
	"regexp"
	"strings"
)

// TenantSource records where a request's tenant identifier came from.
type TenantSource string

const (
	SourcePath   TenantSource = "path"
	SourceHeader TenantSource = "header"
	SourceNone   TenantSource = "none"
)

// TenantContext is the request-scoped result of tenant resolution.
// It is created once per request and never persisted.
type TenantContext struct {
	TenantID string
	Source   TenantSource
}

// None is the tenant context for requests that carry no resolvable tenant.
func None() TenantContext {
	return TenantContext{Source: SourceNone}
}

func (tc TenantContext) Resolved() bool {
	return tc.Source != SourceNone && tc.TenantID != ""
}

// slugPattern is the strict tenant slug grammar. Input is lowercased
// before matching, so mixed-case slugs resolve to their lowercase form.
var slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// reservedSlugs are path segments owned by the system and never valid
// as tenant identifiers.
var reservedSlugs = map[string]struct{}{
	"login":       {},
	"logout":      {},
	"auth":        {},
	"admin":       {},
	"api":         {},
	"ws":          {},
	"static":      {},
	"assets":      {},
	"css":         {},
	"js":          {},
	"images":      {},
	"public":      {},
	"healthz":     {},
	"favicon.ico": {},
}

// Resolver derives a tenant identifier from an inbound request.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve produces the tenant context for a request path and tenant
// header. An explicit, well-formed header wins over the path. Failure
// to resolve is not an error: the request proceeds tenant-less and
// protected resources enforce tenant presence later.
func (r *Resolver) Resolve(path, header string) TenantContext {
	if slug, ok := NormalizeSlug(header); ok {
		return TenantContext{TenantID: slug, Source: SourceHeader}
	}
	if slug, ok := NormalizeSlug(firstPathSegment(path)); ok {
		return TenantContext{TenantID: slug, Source: SourcePath}
	}
	return None()
}

// NormalizeSlug lowercases a candidate tenant slug and reports whether
// it satisfies the slug grammar and is not a reserved system word.
func NormalizeSlug(candidate string) (string, bool) {
	slug := strings.ToLower(strings.TrimSpace(candidate))
	if slug == "" {
		return "", false
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return "", false
	}
	if !slugPattern.MatchString(slug) {
		return "", false
	}
	return slug, true
}

func firstPathSegment(path string) string {
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			return segment
		}
	}
	return ""
}
