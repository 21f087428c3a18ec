package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// RateLimitMode selects how the middleware reacts when the quota is
// exhausted.
type RateLimitMode int

const (
	// RateLimitReject fails the invocation immediately with a rate-limit
	// error carrying a retry-after hint.
	RateLimitReject RateLimitMode = iota
	// RateLimitWait blocks until the limiter grants a token or the
	// context is cancelled.
	RateLimitWait
)

// RateLimit enforces a caller-defined invocation quota with a token
// bucket.
type RateLimit struct {
	limiter *rate.Limiter
	mode    RateLimitMode
}

// NewRateLimit creates a rate-limit middleware allowing rps invocations
// per second with the given burst.
func NewRateLimit(rps float64, burst int, mode RateLimitMode) *RateLimit {
	return &RateLimit{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		mode:    mode,
	}
}

// Name identifies the middleware.
func (m *RateLimit) Name() string { return "ratelimit" }

// Intercept applies the quota before calling next.
func (m *RateLimit) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	switch m.mode {
	case RateLimitWait:
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	default:
		reservation := m.limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			return nil, &errdefs.ProviderError{
				Kind:       errdefs.RateLimitExceeded,
				Agent:      inv.AgentName,
				RetryAfter: delay,
			}
		}
	}
	return next(ctx, inv)
}

// Verify RateLimit implements Middleware at compile time.
var _ Middleware = (*RateLimit)(nil)
