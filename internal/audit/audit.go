// Package audit emits one event per root GraphQL operation. Emission is best
// effort: a failing sink is logged and never fails the request.
package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action classifies what an operation did to data.
type Action string

const (
	ActionRead   Action = "READ"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Event is one audit record. VariableKeys carries variable names only, never
// values.
type Event struct {
	ID            string
	Schema        string
	OperationType string
	Action        Action
	Field         string
	UserID        string
	VariableKeys  []string
	Success       bool
	Error         string
	Duration      time.Duration
	At            time.Time
}

// Logger receives audit events.
type Logger interface {
	Log(event Event)
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(schema, operationType, field string) Event {
	return Event{
		ID:            uuid.NewString(),
		Schema:        schema,
		OperationType: operationType,
		Field:         field,
		At:            time.Now(),
	}
}

// ClassifyMutation maps a mutation field name to an action by prefix. Unmatched
// mutation names default to UPDATE.
func ClassifyMutation(fieldName string) Action {
	lower := strings.ToLower(fieldName)
	switch {
	case strings.HasPrefix(lower, "create"), strings.HasPrefix(lower, "add"):
		return ActionCreate
	case strings.HasPrefix(lower, "delete"), strings.HasPrefix(lower, "remove"):
		return ActionDelete
	case strings.HasPrefix(lower, "update"), strings.HasPrefix(lower, "set"):
		return ActionUpdate
	default:
		return ActionUpdate
	}
}

// ZerologSink writes audit events as structured log lines.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a sink on the given logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger.With().Str("component", "audit").Logger()}
}

// Log writes one event.
func (s *ZerologSink) Log(event Event) {
	entry := s.logger.Info()
	if !event.Success {
		entry = s.logger.Warn()
	}
	entry.
		Str("event_id", event.ID).
		Str("schema", event.Schema).
		Str("operation", event.OperationType).
		Str("action", string(event.Action)).
		Str("field", event.Field).
		Str("user_id", event.UserID).
		Strs("variable_keys", event.VariableKeys).
		Bool("success", event.Success).
		Str("error", event.Error).
		Dur("duration", event.Duration).
		Msg("graphql operation")
}
