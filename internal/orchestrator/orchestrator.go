// Package orchestrator coordinates multiple agents to jointly accomplish
// a task. Four interchangeable strategies implement the same contract:
// Sequential (strict pipeline), Concurrent (parallel fan-out), GroupChat
// (turn-taking discussion with speaker selection), and Handoff (explicit
// transfer of control). Every agent invocation is wrapped through a
// composable middleware chain; all run state accumulates into a single
// OrchestrationResult created fresh per run.
package orchestrator

import (
	"context"
	"time"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/models"
)

// Orchestrator is the contract every coordination strategy implements.
//
// Implementations guarantee:
//   - result.Iterations == len(result.Turns) after Run returns, success
//     or failure.
//   - A returned error is always a *errdefs.RunError carrying the
//     partial result, so callers never lose completed work.
//   - The configured timeout bounds the whole run; in-flight invocations
//     are cancelled cooperatively on expiry.
//   - Agent handles and middleware are reused read-only across runs; no
//     run-scoped state survives a Run call.
type Orchestrator interface {
	// Name returns the orchestrator's configured name.
	Name() string

	// Run drives the strategy over the agent set until a termination
	// condition is reached and returns the finalized result. The
	// returned result is non-nil even on failure.
	Run(ctx context.Context, message string, opts ...RunOption) (*models.OrchestrationResult, error)

	// GetAgent returns the named agent handle from the orchestrator's
	// agent set.
	GetAgent(name string) (agent.Agent, bool)

	// Events returns the orchestrator's event stream.
	Events() <-chan Event
}

// Config contains the immutable run parameters shared by all strategies.
type Config struct {
	// Name identifies the orchestrator. Defaults to "orchestrator".
	Name string
	// MaxIterations caps total turns across a run. Defaults to 20.
	MaxIterations int
	// Timeout is the wall-clock budget for a whole run. Zero means
	// unbounded.
	Timeout time.Duration
	// PreserveHistory controls whether prior turns are visible to
	// subsequent agent invocations. Defaults to true.
	PreserveHistory bool
	// Metadata is attached to every result produced by this
	// orchestrator.
	Metadata map[string]any
}

// DefaultConfig returns the default run parameters.
func DefaultConfig() Config {
	return Config{
		Name:            "orchestrator",
		MaxIterations:   20,
		PreserveHistory: true,
	}
}

// Gate blocks strategy progress between turns. The control package's
// pause controller implements it; a nil gate never blocks.
type Gate interface {
	// Wait returns once progress may continue, or the context's error if
	// cancelled while blocked.
	Wait(ctx context.Context) error
}

// runOptions holds per-run parameters.
type runOptions struct {
	actx *models.Context
}

// RunOption configures a single Run call.
type RunOption func(*runOptions)

// WithRunContext supplies a pre-populated conversational context for the
// run. Without it, a fresh context is created from the message.
func WithRunContext(actx *models.Context) RunOption {
	return func(o *runOptions) { o.actx = actx }
}
