package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
)

// Application-level close codes. Anything at or above CloseAuthFailure
// signals an authentication or session problem, as opposed to a plain
// transport error.
const (
	CloseAuthFailure    websocket.StatusCode = 4001
	CloseSessionExpired websocket.StatusCode = 4002
)

const writeTimeout = 5 * time.Second

// TokenValidator validates a raw session token at handshake time.
type TokenValidator interface {
	Validate(rawToken string) (*token.Claims, error)
}

// Handler upgrades a realtime handshake. The session token rides in
// the `token` query parameter; a missing or invalid token closes the
// socket with an application close code so clients can distinguish
// auth failures from network trouble.
func Handler(hub *Hub, validator TokenValidator, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := &websocket.AcceptOptions{}
		if len(originPatterns) > 0 {
			opts.OriginPatterns = originPatterns
		}
		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			return
		}

		claims, err := validator.Validate(r.URL.Query().Get("token"))
		if err != nil {
			_ = conn.Close(CloseAuthFailure, "unauthenticated")
			return
		}

		sub := hub.Subscribe(claims.TenantID, claims.Subject, defaultBuffer)
		defer hub.Unsubscribe(sub)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		log.Debug().Str("user", claims.Subject).Str("tenant", claims.TenantID).Msg("realtime client connected")
		_ = wsjson.Write(ctx, conn, NewEvent(ScopeSystem, "ready", nil))

		readErr := make(chan error, 1)
		go func() {
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					readErr <- err
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			case <-readErr:
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			case evt, ok := <-sub.Events():
				if !ok {
					_ = conn.Close(websocket.StatusNormalClosure, "closed")
					return
				}
				writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
				err := wsjson.Write(writeCtx, conn, evt)
				cancelWrite()
				if err != nil {
					_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
					return
				}
			}
		}
	}
}
