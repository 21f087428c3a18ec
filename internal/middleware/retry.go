package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// Retry re-invokes the downstream chain on transient failures with
// exponential backoff, propagating the last error once attempts are
// exhausted. Retry bookkeeping never leaks into the orchestration result;
// the orchestrator only sees the final outcome.
type Retry struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRetry creates a retry middleware. Attempts below 1 are clamped to 1.
// Zero backoff values fall back to 500ms initial and 30s max.
func NewRetry(maxAttempts int, initialBackoff, maxBackoff time.Duration) *Retry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if initialBackoff <= 0 {
		initialBackoff = 500 * time.Millisecond
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &Retry{
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// Name identifies the middleware.
func (m *Retry) Name() string { return "retry" }

// Intercept runs next up to the configured attempt count. Only errors
// classified as retryable trigger another attempt; rate-limit errors with
// a retry-after hint wait at least that long.
func (m *Retry) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	backoff := m.initialBackoff
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		resp, err := next(ctx, inv)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == m.maxAttempts || !errdefs.Retryable(err) {
			break
		}

		wait := backoff
		var pe *errdefs.ProviderError
		if errors.As(err, &pe) && pe.RetryAfter > wait {
			wait = pe.RetryAfter
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		backoff *= 2
		if backoff > m.maxBackoff {
			backoff = m.maxBackoff
		}
	}
	return nil, lastErr
}

// Verify Retry implements Middleware at compile time.
var _ Middleware = (*Retry)(nil)
