package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token       string `json:"token"`
	Stage       string `json:"stage"`
	MFARequired bool   `json:"mfa_required"`
}

// LoginHandler verifies the primary credential and returns a session
// token. When the account needs a second factor the token is staged and
// mfa_required signals the client to continue the challenge.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", ErrorDescription: "email and password are required"})
			return
		}

		result, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeAppError(w, err, "login failed")
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{
			Token:       result.Token,
			Stage:       string(result.Stage),
			MFARequired: result.MFARequired,
		})
	}
}

type mfaRequest struct {
	Code string `json:"code"`
}

// MFAHandler completes the second factor challenge and returns a fresh
// fully-authenticated token for the same subject.
func (s *Server) MFAHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeAppError(w, apperrors.ErrUnauthenticated, "no authenticated subject")
			return
		}

		var req mfaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", ErrorDescription: "verification code is required"})
			return
		}

		advanced, err := s.auth.VerifyMFA(r.Context(), claims, req.Code)
		if err != nil {
			writeAppError(w, err, "verification failed")
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{Token: advanced, Stage: "mfa_ok"})
	}
}

// LogoutHandler revokes the presented token. Revocation is best-effort:
// the client is logged out either way.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken, _ := r.Context().Value(ContextKeyRawToken).(string)
		if err := s.auth.Logout(rawToken); err != nil {
			log.Warn().Err(err).Msg("token revocation failed")
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}
