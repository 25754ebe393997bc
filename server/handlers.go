package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
)

// ErrorResponse is the structured error body every endpoint returns.
// The error field carries a stable code; descriptions are for humans
// and never include internal details.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// writeAppError maps an error onto its stable wire code and HTTP status.
func writeAppError(w http.ResponseWriter, err error, description string) {
	code := apperrors.Code(err)
	writeJSON(w, statusForCode(code), ErrorResponse{Error: code, ErrorDescription: description})
}

func statusForCode(code string) int {
	switch code {
	case "unauthenticated":
		return http.StatusUnauthorized
	case "mfa_required", "forbidden":
		return http.StatusForbidden
	case "invalid_tenant":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "loop_detected":
		return http.StatusTooManyRequests
	case "connection_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HealthzHandler reports liveness plus the number of schema pools the
// connection registry currently holds.
func (s *Server) HealthzHandler() http.HandlerFunc {
	type healthResponse struct {
		Status      string `json:"status"`
		App         string `json:"app"`
		Connections int    `json:"connections"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", App: s.config.GetAppName()}
		if s.registry != nil {
			resp.Connections = s.registry.Size()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
