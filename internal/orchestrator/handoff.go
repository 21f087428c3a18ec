package orchestrator

import (
	"context"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// HandoffStrategy validates proposed transfers of control between agents.
type HandoffStrategy interface {
	// Validate returns nil when the source agent may hand control to the
	// target, an error (typically *errdefs.HandoffRejectedError)
	// otherwise.
	Validate(source, target string, result *models.OrchestrationResult) error
}

// AllowAll permits every handoff between agents in the set.
type AllowAll struct{}

// Verify AllowAll implements HandoffStrategy at compile time.
var _ HandoffStrategy = AllowAll{}

// Validate always permits the transfer.
func (AllowAll) Validate(source, target string, result *models.OrchestrationResult) error {
	return nil
}

// AllowList permits only explicitly declared transfers.
type AllowList struct {
	// Edges maps a source agent to the targets it may hand off to.
	Edges map[string][]string
}

// Verify AllowList implements HandoffStrategy at compile time.
var _ HandoffStrategy = (*AllowList)(nil)

// Validate permits the transfer only when it is declared.
func (l *AllowList) Validate(source, target string, result *models.OrchestrationResult) error {
	for _, allowed := range l.Edges[source] {
		if allowed == target {
			return nil
		}
	}
	return &errdefs.HandoffRejectedError{Source: source, Target: target, Reason: "transfer not in allow list"}
}

// handoffPair tracks a (source, target) transfer for loop protection.
type handoffPair struct {
	source string
	target string
}

// Handoff transfers control explicitly between agents: each response may
// name a target agent to continue the conversation, subject to the
// configured strategy. Repeating the same (source, target) transfer
// beyond the repeat limit aborts the run, independent of the iteration
// cap.
type Handoff struct {
	*base
	strategy    HandoffStrategy
	initial     string
	repeatLimit int
}

// Verify Handoff implements Orchestrator at compile time.
var _ Orchestrator = (*Handoff)(nil)

// NewHandoff creates a handoff orchestrator starting with the named
// initial agent. A nil strategy defaults to AllowAll.
func NewHandoff(agents []agent.Agent, initial string, strategy HandoffStrategy, opts ...Option) (*Handoff, error) {
	b, o, err := newBase(agents, opts)
	if err != nil {
		return nil, err
	}
	if initial == "" {
		initial = b.agents.Names()[0]
	}
	if _, ok := b.agents.Get(initial); !ok {
		return nil, &errdefs.ConfigurationError{Reason: "initial agent " + initial + " is not in the agent set"}
	}
	if strategy == nil {
		strategy = AllowAll{}
	}
	return &Handoff{
		base:        b,
		strategy:    strategy,
		initial:     initial,
		repeatLimit: o.repeatLimit,
	}, nil
}

// Run drives the conversation from the initial agent, following legal
// handoffs until an agent proposes none. For this strategy, running out
// of iterations with a handoff still pending is a failure, not normal
// termination.
func (o *Handoff) Run(ctx context.Context, message string, opts ...RunOption) (*models.OrchestrationResult, error) {
	runCtx, cancel, result, actx := o.begin(ctx, opts, message)
	defer cancel()

	if o.cfg.PreserveHistory {
		actx.Append(models.Message{Role: models.RoleUser, Content: message})
	}

	transfers := make(map[handoffPair]int)
	active := o.initial

	for {
		if err := o.waitGate(runCtx); err != nil {
			return o.fail(runCtx, result, err)
		}
		if err := runCtx.Err(); err != nil {
			return o.fail(runCtx, result, err)
		}

		ag, _ := o.agents.Get(active)
		resp, err := o.invoke(runCtx, ag, message, o.visible(actx))
		if err != nil {
			o.emitter.Emit(Event{Type: EventTurnFailed, RunID: result.RunID, Orchestrator: o.name, AgentName: active, Error: err})
			return o.fail(runCtx, result, err)
		}

		o.recordTurn(result, active, resp)
		if o.cfg.PreserveHistory {
			actx.Append(resp.Message)
		}

		target := resp.Handoff
		if target == "" {
			// No handoff proposed: normal termination.
			return o.finish(result)
		}

		if _, ok := o.agents.Get(target); !ok {
			return o.fail(runCtx, result, &errdefs.HandoffRejectedError{
				Source: active, Target: target, Reason: "unknown agent",
			})
		}
		if err := o.strategy.Validate(active, target, result); err != nil {
			return o.fail(runCtx, result, err)
		}

		pair := handoffPair{source: active, target: target}
		transfers[pair]++
		if transfers[pair] > o.repeatLimit {
			return o.fail(runCtx, result, &errdefs.MaxIterationsError{
				Limit:     o.repeatLimit,
				Completed: result.Iterations,
			})
		}

		if result.Iterations >= o.cfg.MaxIterations {
			// A handoff is still pending, so the run is incomplete.
			return o.fail(runCtx, result, &errdefs.MaxIterationsError{
				Limit:     o.cfg.MaxIterations,
				Completed: result.Iterations,
			})
		}

		o.logger.Log("[run %s] handoff %s -> %s", result.RunID, active, target)
		active = target
	}
}

// visible returns the context an invocation may see.
func (o *Handoff) visible(actx *models.Context) *models.Context {
	if o.cfg.PreserveHistory {
		return actx
	}
	return models.NewContext(actx.Task)
}
