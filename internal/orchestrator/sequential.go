package orchestrator

import (
	"context"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/models"
)

// Sequential drives agents one after another in construction order. Each
// agent's output joins the shared context seen by subsequent agents when
// history preservation is enabled. Any invocation failure aborts the run
// with the partial result attached.
type Sequential struct {
	*base
}

// Verify Sequential implements Orchestrator at compile time.
var _ Orchestrator = (*Sequential)(nil)

// NewSequential creates a sequential orchestrator over the given agents.
func NewSequential(agents []agent.Agent, opts ...Option) (*Sequential, error) {
	b, _, err := newBase(agents, opts)
	if err != nil {
		return nil, err
	}
	return &Sequential{base: b}, nil
}

// Run invokes each agent in order, stopping early when the iteration cap
// is reached. Reaching the cap is normal termination, not a failure.
func (o *Sequential) Run(ctx context.Context, message string, opts ...RunOption) (*models.OrchestrationResult, error) {
	runCtx, cancel, result, actx := o.begin(ctx, opts, message)
	defer cancel()

	if o.cfg.PreserveHistory {
		actx.Append(models.Message{Role: models.RoleUser, Content: message})
	}

	for _, name := range o.agents.Names() {
		if result.Iterations >= o.cfg.MaxIterations {
			break
		}
		if err := o.waitGate(runCtx); err != nil {
			return o.fail(runCtx, result, err)
		}
		if err := runCtx.Err(); err != nil {
			return o.fail(runCtx, result, err)
		}

		ag, _ := o.agents.Get(name)
		resp, err := o.invoke(runCtx, ag, message, o.visibleContext(actx))
		if err != nil {
			o.emitter.Emit(Event{Type: EventTurnFailed, RunID: result.RunID, Orchestrator: o.name, AgentName: name, Error: err})
			return o.fail(runCtx, result, err)
		}

		o.recordTurn(result, name, resp)
		if o.cfg.PreserveHistory {
			actx.Append(resp.Message)
		}
	}

	return o.finish(result)
}

// visibleContext returns the context an invocation may see. Without
// history preservation each agent gets a fresh context for the task.
func (o *Sequential) visibleContext(actx *models.Context) *models.Context {
	if o.cfg.PreserveHistory {
		return actx
	}
	return models.NewContext(actx.Task)
}
