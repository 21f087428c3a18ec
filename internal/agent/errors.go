package agent

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ensembleai/ensemble/pkg/errdefs"
)

// translateAPIError maps Anthropic SDK errors to the engine's provider
// error taxonomy. Unrecognized failures are surfaced as ProviderUnknown.
func translateAPIError(agentName string, err error) error {
	var apierr *anthropic.Error
	if !errors.As(err, &apierr) {
		return &errdefs.ProviderError{Kind: errdefs.ProviderUnknown, Agent: agentName, Err: err}
	}

	pe := &errdefs.ProviderError{Kind: errdefs.ProviderUnknown, Agent: agentName, Err: err}

	switch apierr.StatusCode {
	case http.StatusTooManyRequests:
		pe.Kind = errdefs.RateLimitExceeded
		pe.RetryAfter = retryAfterHint(apierr.Response)
	case http.StatusUnauthorized, http.StatusForbidden:
		pe.Kind = errdefs.AuthenticationFailed
	case http.StatusNotFound:
		pe.Kind = errdefs.ModelUnavailable
	case http.StatusRequestEntityTooLarge:
		pe.Kind = errdefs.ContextTooLong
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, 529:
		// Overloaded/unavailable upstream; retryable.
		pe.Kind = errdefs.ModelUnavailable
	}
	return pe
}

// retryAfterHint reads the Retry-After header from a rate-limit response.
func retryAfterHint(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
