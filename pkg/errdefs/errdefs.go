// Package errdefs defines the typed errors surfaced by the Ensemble
// orchestration engine. Callers classify failures with errors.As and
// errors.Is; every error surfaced from a run wraps the partial
// OrchestrationResult so completed work is never lost on failure.
package errdefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ensembleai/ensemble/pkg/models"
)

// ErrTransient marks an error as retryable. Wrap with
// fmt.Errorf("...: %w", errdefs.ErrTransient) to opt an arbitrary failure
// into retry handling.
var ErrTransient = errors.New("transient failure")

// ProviderErrorKind classifies provider (agent/LLM call) failures.
type ProviderErrorKind int

const (
	// ProviderUnknown is an unclassified provider failure.
	ProviderUnknown ProviderErrorKind = iota
	// RateLimitExceeded indicates the provider rejected the call due to
	// rate limiting.
	RateLimitExceeded
	// AuthenticationFailed indicates invalid or missing credentials.
	AuthenticationFailed
	// ModelUnavailable indicates the requested model cannot serve the call.
	ModelUnavailable
	// ContextTooLong indicates the input exceeded the model's context window.
	ContextTooLong
)

// String returns a human-readable name for the kind.
func (k ProviderErrorKind) String() string {
	switch k {
	case RateLimitExceeded:
		return "rate_limit_exceeded"
	case AuthenticationFailed:
		return "authentication_failed"
	case ModelUnavailable:
		return "model_unavailable"
	case ContextTooLong:
		return "context_too_long"
	default:
		return "unknown"
	}
}

// ProviderError reports a failed agent/LLM provider call.
type ProviderError struct {
	// Kind classifies the failure.
	Kind ProviderErrorKind
	// Agent is the name of the agent whose call failed.
	Agent string
	// RetryAfter is the provider's retry hint for rate-limit failures,
	// zero when unknown.
	RetryAfter time.Duration
	// MaxTokens and ActualTokens carry the window limit and attempted
	// size for ContextTooLong failures.
	MaxTokens    int64
	ActualTokens int64
	// Err is the underlying provider error.
	Err error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provider error (%s)", e.Kind)
	if e.Agent != "" {
		fmt.Fprintf(&b, " for agent %q", e.Agent)
	}
	if e.Kind == ContextTooLong && e.MaxTokens > 0 {
		fmt.Fprintf(&b, ": %d tokens exceeds limit of %d", e.ActualTokens, e.MaxTokens)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ToolErrorKind classifies tool invocation failures.
type ToolErrorKind int

const (
	// ToolNotFound indicates the requested tool is not registered.
	ToolNotFound ToolErrorKind = iota
	// ToolValidationFailed indicates the tool rejected its input.
	ToolValidationFailed
	// ToolExecutionFailed indicates the tool ran and failed.
	ToolExecutionFailed
)

// String returns a human-readable name for the kind.
func (k ToolErrorKind) String() string {
	switch k {
	case ToolNotFound:
		return "tool_not_found"
	case ToolValidationFailed:
		return "tool_validation_failed"
	default:
		return "tool_execution_failed"
	}
}

// ToolError reports a failed tool invocation surfaced by an agent.
type ToolError struct {
	// Kind classifies the failure.
	Kind ToolErrorKind
	// Tool is the name of the tool involved.
	Tool string
	// Err is the underlying failure, if any.
	Err error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool error (%s) for %q: %v", e.Kind, e.Tool, e.Err)
	}
	return fmt.Sprintf("tool error (%s) for %q", e.Kind, e.Tool)
}

func (e *ToolError) Unwrap() error { return e.Err }

// HandoffRejectedError reports an illegal agent-to-agent handoff.
type HandoffRejectedError struct {
	// Source is the agent proposing the handoff.
	Source string
	// Target is the proposed next agent.
	Target string
	// Reason optionally explains the rejection.
	Reason string
}

func (e *HandoffRejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("handoff from %q to %q rejected: %s", e.Source, e.Target, e.Reason)
	}
	return fmt.Sprintf("handoff from %q to %q rejected", e.Source, e.Target)
}

// MaxIterationsError reports that a run exhausted its iteration cap in a
// strategy that treats incompleteness as an error.
type MaxIterationsError struct {
	// Limit is the configured cap.
	Limit int
	// Completed is the number of iterations actually completed.
	Completed int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("max iterations exceeded: completed %d of allowed %d", e.Completed, e.Limit)
}

// SpeakerSelectionError reports that a speaker-selection policy could not
// determine a unique next speaker.
type SpeakerSelectionError struct {
	// Candidates lists the ambiguous candidates, if known.
	Candidates []string
	// Reason optionally explains the ambiguity.
	Reason string
}

func (e *SpeakerSelectionError) Error() string {
	msg := "speaker selection ambiguous"
	if len(e.Candidates) > 0 {
		msg += ": candidates " + strings.Join(e.Candidates, ", ")
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// MiddlewareError reports a failure originating inside a middleware,
// naming the offending middleware.
type MiddlewareError struct {
	// Middleware is the name of the middleware that failed.
	Middleware string
	// Err is the underlying failure.
	Err error
}

func (e *MiddlewareError) Error() string {
	return fmt.Sprintf("middleware %q: %v", e.Middleware, e.Err)
}

func (e *MiddlewareError) Unwrap() error { return e.Err }

// ValidationError reports malformed invocation input or output detected
// by the validation middleware.
type ValidationError struct {
	// Stage is "input" or "output".
	Stage string
	// Reason describes what was malformed.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Stage, e.Reason)
}

// TimeoutError reports that a run exceeded its configured wall-clock
// budget.
type TimeoutError struct {
	// Budget is the configured timeout.
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run timed out after configured budget of %s", e.Budget)
}

// ConfigurationError reports a malformed orchestrator configuration or
// agent set.
type ConfigurationError struct {
	// Reason describes the configuration problem.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// PartialFailure aggregates per-agent failures from a concurrent run
// where sibling invocations succeeded.
type PartialFailure struct {
	// Failures maps failed agent names to their errors.
	Failures map[string]error
}

func (e *PartialFailure) Error() string {
	names := e.FailedAgents()
	return fmt.Sprintf("%d agent(s) failed: %s", len(names), strings.Join(names, ", "))
}

// FailedAgents returns the failed agent names in sorted order.
func (e *PartialFailure) FailedAgents() []string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunError is the error type surfaced from Orchestrator.Run. It carries
// the partial result accumulated before the failure so callers keep
// completed work.
type RunError struct {
	// Result is the partial orchestration result. Never nil.
	Result *models.OrchestrationResult
	// Err is the underlying failure.
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("orchestration run %s failed: %v", e.Result.RunID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Retryable reports whether an error is worth retrying. Rate-limit and
// model-availability provider failures are transient; authentication and
// context-length failures are not. Arbitrary errors opt in by wrapping
// ErrTransient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case RateLimitExceeded, ModelUnavailable:
			return true
		}
	}
	return false
}
