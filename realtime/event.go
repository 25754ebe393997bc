package realtime

import (
	"encoding/json"
	"time"
)

// Scope determines which live sockets receive an event.
type Scope string

const (
	// ScopeUser delivers only to sockets registered under the same subject.
	ScopeUser Scope = "user_notification"
	// ScopeTenant delivers to every socket registered under the same tenant.
	ScopeTenant Scope = "tenant_notification"
	// ScopeSystem delivers to all live sockets regardless of tenant.
	ScopeSystem Scope = "system_alert"
)

// Event is one pushed notification. Delivery is best-effort and
// unordered across scopes; events are never persisted or replayed.
type Event struct {
	Scope Scope           `json:"scope"`
	Type  string          `json:"type"`
	At    string          `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEvent(scope Scope, eventType string, data interface{}) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{Scope: scope, Type: eventType, At: time.Now().UTC().Format(time.RFC3339Nano), Data: raw}
}
