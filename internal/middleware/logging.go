package middleware

import (
	"context"
	"log"
	"time"

	"github.com/ensembleai/ensemble/pkg/models"
)

// Logger is the minimal logging surface the logging middleware needs.
// The stdlib *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Logging records invocation start, completion, and duration. It never
// alters the payload and never suppresses errors.
type Logging struct {
	logger Logger
}

// NewLogging creates a logging middleware. A nil logger falls back to the
// stdlib default logger.
func NewLogging(logger Logger) *Logging {
	if logger == nil {
		logger = log.Default()
	}
	return &Logging{logger: logger}
}

// Name identifies the middleware.
func (m *Logging) Name() string { return "logging" }

// Intercept logs around the downstream call.
func (m *Logging) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	start := time.Now()
	m.logger.Printf("[invoke] agent=%s trace=%s start", inv.AgentName, inv.TraceID)

	resp, err := next(ctx, inv)

	elapsed := time.Since(start)
	if err != nil {
		m.logger.Printf("[invoke] agent=%s trace=%s failed after %s: %v", inv.AgentName, inv.TraceID, elapsed, err)
		return nil, err
	}
	m.logger.Printf("[invoke] agent=%s trace=%s done in %s (tokens=%d)", inv.AgentName, inv.TraceID, elapsed, resp.Usage.TotalTokens)
	return resp, nil
}

// Verify Logging implements Middleware at compile time.
var _ Middleware = (*Logging)(nil)
