package middleware

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/audit"
	"github.com/graphmux/graphmux/internal/auth"
	"github.com/graphmux/graphmux/internal/settings"
)

// AuditMiddleware emits one audit event per root field. Nested fields and
// introspection meta fields are not audited. Emission never fails the request.
type AuditMiddleware struct {
	schemaName string
	ms         settings.MiddlewareSettings
	sink       audit.Logger
	logger     zerolog.Logger
}

// NewAudit creates the audit middleware. A nil sink disables emission.
func NewAudit(schemaName string, ms settings.MiddlewareSettings, sink audit.Logger, logger zerolog.Logger) *AuditMiddleware {
	return &AuditMiddleware{
		schemaName: schemaName,
		ms:         ms,
		sink:       sink,
		logger:     logger.With().Str("component", "audit-middleware").Str("schema", schemaName).Logger(),
	}
}

func (m *AuditMiddleware) Resolve(next Resolver, root any, info *ResolveInfo, args map[string]any) (any, error) {
	if !m.ms.EnableAudit || m.sink == nil || !info.IsRootField() || info.IsIntrospectionField() {
		return next(root, info, args)
	}

	event := audit.NewEvent(m.schemaName, info.OperationType, info.FieldName)
	event.VariableKeys = info.VariableKeys()
	if user := auth.UserFromContext(info.Ctx); user != nil {
		event.UserID = user.ID
	}
	switch info.OperationType {
	case "mutation":
		event.Action = audit.ClassifyMutation(info.FieldName)
	default:
		event.Action = audit.ActionRead
	}

	start := time.Now()
	result, err := next(root, info, args)
	event.Duration = time.Since(start)
	event.Success = err == nil
	if err != nil {
		event.Error = err.Error()
	}
	m.emit(event)
	return result, err
}

func (m *AuditMiddleware) emit(event audit.Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("audit sink panicked")
		}
	}()
	m.sink.Log(event)
}
