package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/ensembleai/ensemble/pkg/models"
)

type traceIDKey struct{}

// ContextWithTraceID returns a context carrying the given correlation ID.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext extracts the correlation ID from a context, or an
// empty string when none is set.
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}

// Tracing attaches a correlation identifier to the invocation and its
// context so nested/child invocations inherit it.
type Tracing struct{}

// NewTracing creates a tracing middleware.
func NewTracing() *Tracing {
	return &Tracing{}
}

// Name identifies the middleware.
func (m *Tracing) Name() string { return "tracing" }

// Intercept ensures a trace ID is present, preferring in order: the
// invocation's existing ID, an ID inherited from the context (set by a
// parent invocation), then a freshly generated one.
func (m *Tracing) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	if inv.TraceID == "" {
		if inherited := TraceIDFromContext(ctx); inherited != "" {
			inv.TraceID = inherited
		} else {
			inv.TraceID = uuid.New().String()
		}
	}
	return next(ContextWithTraceID(ctx, inv.TraceID), inv)
}

// Verify Tracing implements Middleware at compile time.
var _ Middleware = (*Tracing)(nil)
