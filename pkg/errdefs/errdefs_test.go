package errdefs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ensembleai/ensemble/pkg/models"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transient sentinel", fmt.Errorf("call failed: %w", ErrTransient), true},
		{"rate limit", &ProviderError{Kind: RateLimitExceeded}, true},
		{"model unavailable", &ProviderError{Kind: ModelUnavailable}, true},
		{"auth failure", &ProviderError{Kind: AuthenticationFailed}, false},
		{"context too long", &ProviderError{Kind: ContextTooLong}, false},
		{"wrapped rate limit", fmt.Errorf("invoke: %w", &ProviderError{Kind: RateLimitExceeded}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{
		Kind:         ContextTooLong,
		Agent:        "writer",
		MaxTokens:    200000,
		ActualTokens: 250000,
	}
	msg := err.Error()
	if !strings.Contains(msg, "context_too_long") {
		t.Errorf("message %q should name the kind", msg)
	}
	if !strings.Contains(msg, "250000") || !strings.Contains(msg, "200000") {
		t.Errorf("message %q should carry actual and max token counts", msg)
	}
}

func TestRunError_CarriesPartialResult(t *testing.T) {
	result := models.NewResult("sequential", nil)
	result.AddTurn("alpha", models.NewResponse("alpha", "done", models.Usage{}))

	var err error = &RunError{Result: result, Err: &TimeoutError{Budget: time.Second}}

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatal("errors.As should find RunError")
	}
	if runErr.Result.Len() != 1 {
		t.Errorf("partial result has %d turns, want 1", runErr.Result.Len())
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Error("errors.As should unwrap to TimeoutError")
	}
}

func TestPartialFailure_FailedAgents(t *testing.T) {
	err := &PartialFailure{Failures: map[string]error{
		"charlie": errors.New("x"),
		"alpha":   errors.New("y"),
	}}

	got := err.FailedAgents()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "charlie" {
		t.Errorf("FailedAgents = %v, want sorted [alpha charlie]", got)
	}
	if !strings.Contains(err.Error(), "2 agent(s) failed") {
		t.Errorf("Error() = %q, want failure count", err.Error())
	}
}

func TestHandoffRejectedError_NamesBothAgents(t *testing.T) {
	err := &HandoffRejectedError{Source: "triage", Target: "billing"}
	if !strings.Contains(err.Error(), "triage") || !strings.Contains(err.Error(), "billing") {
		t.Errorf("Error() = %q, want both agent names", err.Error())
	}
}

func TestMiddlewareError_Unwrap(t *testing.T) {
	inner := &ValidationError{Stage: "input", Reason: "empty message"}
	err := &MiddlewareError{Middleware: "validation", Err: inner}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should unwrap ValidationError")
	}
	if ve.Stage != "input" {
		t.Errorf("Stage = %q, want input", ve.Stage)
	}
}
