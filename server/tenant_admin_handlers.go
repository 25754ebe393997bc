package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/tenants"
)

// ListTenantsHandler pages through the tenant directory.
func (s *Server) ListTenantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Garbage or negative paging values degrade to the defaults.
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset < 0 {
			offset = 0
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 0 {
			limit = 0
		}

		all, err := s.repos.Tenants.List(offset, limit)
		if err != nil {
			log.Error().Err(err).Msg("tenant list failed")
			writeAppError(w, apperrors.ErrInternal, "failed to list tenants")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenants": all})
	}
}

type createTenantRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Schema string `json:"schema"`
}

// CreateTenantHandler registers a tenant and warms the connection pool
// for its schema, so the first request under the new slug does not pay
// the cold-start cost.
func (s *Server) CreateTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTenantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", ErrorDescription: "name and slug are required"})
			return
		}

		slug, ok := tenants.NormalizeSlug(req.Slug)
		if !ok {
			writeAppError(w, apperrors.ErrInvalidTenantSlug, "slug must be lowercase letters, digits or underscores and not a reserved word")
			return
		}
		if req.Schema == "" {
			req.Schema = "tenant_" + slug
		}

		tenant := &tenants.Tenant{Name: req.Name, Slug: slug, Schema: req.Schema}
		if err := s.repos.Tenants.Upsert(tenant); err != nil {
			writeAppError(w, err, "failed to store tenant")
			return
		}

		if s.registry != nil {
			if _, err := s.registry.GetOrCreate(r.Context(), tenant.Schema); err != nil {
				writeAppError(w, err, "tenant stored but its data store is unavailable")
				return
			}
		}

		writeJSON(w, http.StatusCreated, tenant)
	}
}
