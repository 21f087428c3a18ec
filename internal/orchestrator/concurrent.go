package orchestrator

import (
	"context"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// Concurrent fans out every agent against the same initial message in
// parallel. Turns are appended in completion order under a single-writer
// discipline; one agent's failure never aborts siblings already in
// flight. If any invocation failed, the run reports a partial failure
// enumerating the failed agents alongside the turns that succeeded.
//
// FinalResponse is left unset unless an Aggregator was configured;
// callers inspect Turns directly. Content() still falls back to the last
// completed turn.
type Concurrent struct {
	*base
	aggregator Aggregator
}

// Verify Concurrent implements Orchestrator at compile time.
var _ Orchestrator = (*Concurrent)(nil)

// NewConcurrent creates a concurrent orchestrator over the given agents.
func NewConcurrent(agents []agent.Agent, opts ...Option) (*Concurrent, error) {
	b, o, err := newBase(agents, opts)
	if err != nil {
		return nil, err
	}
	return &Concurrent{base: b, aggregator: o.aggregator}, nil
}

// completion is one settled invocation funneled to the collecting writer.
type completion struct {
	agentName string
	resp      *models.Response
	err       error
}

// Run launches all invocations concurrently and collects completions
// until all have settled or the run's budget expires. Results arriving
// after expiry are discarded.
func (o *Concurrent) Run(ctx context.Context, message string, opts ...RunOption) (*models.OrchestrationResult, error) {
	runCtx, cancel, result, actx := o.begin(ctx, opts, message)
	defer cancel()

	if o.cfg.PreserveHistory {
		actx.Append(models.Message{Role: models.RoleUser, Content: message})
	}

	names := o.agents.Names()
	if len(names) > o.cfg.MaxIterations {
		names = names[:o.cfg.MaxIterations]
	}

	// Buffered to the launch count so late completions never block a
	// goroutine after the collector has stopped reading.
	completionCh := make(chan completion, len(names))

	for _, name := range names {
		ag, _ := o.agents.Get(name)
		go func(name string, ag agent.Agent) {
			resp, err := o.invoke(runCtx, ag, message, actx.Clone())
			completionCh <- completion{agentName: name, resp: resp, err: err}
		}(name, ag)
	}

	// Single-writer collection loop: only this goroutine touches the
	// result.
	failures := make(map[string]error)
	for settled := 0; settled < len(names); settled++ {
		select {
		case c := <-completionCh:
			if c.err != nil {
				o.logger.Log("[run %s] agent %s failed: %v", result.RunID, c.agentName, c.err)
				o.emitter.Emit(Event{Type: EventTurnFailed, RunID: result.RunID, Orchestrator: o.name, AgentName: c.agentName, Error: c.err})
				failures[c.agentName] = c.err
				continue
			}
			o.recordTurn(result, c.agentName, c.resp)

		case <-runCtx.Done():
			result.SetFinalResponse(nil)
			return o.fail(runCtx, result, runCtx.Err())
		}
	}

	if len(failures) > 0 {
		result.SetFinalResponse(nil)
		return o.fail(runCtx, result, &errdefs.PartialFailure{Failures: failures})
	}

	if o.aggregator != nil {
		result.SetFinalResponse(o.aggregator(result.Turns))
	} else {
		// Pin FinalResponse to unset: completion order carries no
		// meaning, so no turn is "the" answer.
		result.SetFinalResponse(nil)
	}
	return o.finish(result)
}
