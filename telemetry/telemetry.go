package telemetry

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event is a single fire-and-forget telemetry record.
type Event struct {
	Type   string         `json:"type"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(eventType string, fields map[string]any) Event {
	return Event{Type: eventType, At: time.Now().UTC(), Fields: fields}
}

// Emitter receives telemetry events. Implementations must never block
// the caller and must never return an error to it - delivery is
// best-effort by contract.
type Emitter interface {
	Emit(event Event)
}

// LogEmitter writes events through zerolog.
type LogEmitter struct {
	logger zerolog.Logger
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: log.Logger}
}

func (e *LogEmitter) Emit(event Event) {
	ev := e.logger.Info().Str("event", event.Type).Time("at", event.At)
	for k, v := range event.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("telemetry")
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
