package server

import (
	"net/http"
	"strconv"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/telemetry"
)

// LoopGuardMiddleware breaks client-side redirect loops. A cookie
// counts consecutive redirect responses: each 3xx increments it, any
// terminal response clears it. When a request arrives with the counter
// at the threshold, the chain is cut with 429 loop_detected and a
// telemetry event instead of yet another redirect. The counter is a UX
// safeguard, not a security control, so it is not signed.
func (s *Server) LoopGuardMiddleware(next http.HandlerFunc) http.HandlerFunc {
	threshold := s.config.GetRedirectLoopThreshold()
	return func(w http.ResponseWriter, r *http.Request) {
		count := redirectCount(r)
		if count >= threshold {
			s.emitter.Emit(telemetry.NewEvent("redirect_loop_detected", map[string]any{
				"path":   r.URL.Path,
				"client": r.RemoteAddr,
				"count":  count,
			}))
			clearRedirectCount(w)
			writeAppError(w, apperrors.ErrLoopDetected, "too many consecutive redirects")
			return
		}
		next(&loopGuardWriter{ResponseWriter: w, count: count}, r)
	}
}

func redirectCount(r *http.Request) int {
	cookie, err := r.Cookie(RedirectCountCookie)
	if err != nil {
		return 0
	}
	count, err := strconv.Atoi(cookie.Value)
	if err != nil || count < 0 {
		// Garbage counters reset rather than fail the request.
		return 0
	}
	return count
}

func clearRedirectCount(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: RedirectCountCookie, Value: "", Path: "/", MaxAge: -1})
}

// loopGuardWriter updates the redirect counter based on the status the
// handler writes: redirects increment, terminal responses clear.
type loopGuardWriter struct {
	http.ResponseWriter
	count       int
	wroteHeader bool
}

func (w *loopGuardWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if status >= 300 && status < 400 {
			http.SetCookie(w, &http.Cookie{
				Name:  RedirectCountCookie,
				Value: strconv.Itoa(w.count + 1),
				Path:  "/",
			})
		} else if w.count > 0 {
			clearRedirectCount(w)
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *loopGuardWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *loopGuardWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
