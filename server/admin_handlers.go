package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
)

type mfaRolesResponse struct {
	MFARoles policy.MFARoles `json:"mfa_roles"`
}

// GetMFARolesHandler returns the effective MFA policy: the stored
// record merged over built-in defaults.
func (s *Server) GetMFARolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, mfaRolesResponse{MFARoles: s.policies.Get(r.Context())})
	}
}

// PutMFARolesHandler replaces the MFA policy record. The raw mapping is
// normalized before persisting and the response echoes exactly what was
// stored, so clients see the effect of key lowercasing and value
// coercion immediately.
func (s *Server) PutMFARolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", ErrorDescription: "request body must be a JSON object"})
			return
		}

		persisted, err := s.policies.Set(r.Context(), raw)
		if err != nil {
			writeAppError(w, apperrors.ErrInternal, "failed to store policy")
			return
		}

		writeJSON(w, http.StatusOK, mfaRolesResponse{MFARoles: persisted})
	}
}
