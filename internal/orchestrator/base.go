package orchestrator

import (
	"context"
	"errors"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/internal/middleware"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// base carries the state shared by every strategy: the agent set, the
// composed middleware handler, configuration, events, and logging. All of
// it is read-only across runs; run-scoped state lives in the result.
type base struct {
	name    string
	cfg     Config
	agents  *AgentSet
	handler middleware.Handler
	emitter *EventEmitter
	logger  *DebugLogger
	gate    Gate
}

// newBase validates the agent set and composes the middleware chain into
// a single handler ending at the real agent call.
func newBase(agents []agent.Agent, opts []Option) (*base, *options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.MaxIterations <= 0 {
		return nil, nil, &errdefs.ConfigurationError{Reason: "max iterations must be positive"}
	}

	set, err := NewAgentSet(agents)
	if err != nil {
		return nil, nil, err
	}

	return &base{
		name:    o.cfg.Name,
		cfg:     o.cfg,
		agents:  set,
		handler: o.chain.Then(middleware.AgentHandler()),
		emitter: NewEventEmitter(o.eventBuffer),
		logger:  o.logger,
		gate:    o.gate,
	}, o, nil
}

// Name returns the orchestrator's configured name.
func (b *base) Name() string {
	return b.name
}

// GetAgent returns the named agent handle.
func (b *base) GetAgent(name string) (agent.Agent, bool) {
	return b.agents.Get(name)
}

// Events returns the orchestrator's event stream.
func (b *base) Events() <-chan Event {
	return b.emitter.Events()
}

// begin creates the run-scoped result and context. The returned cancel
// must be called when the run ends.
func (b *base) begin(ctx context.Context, opts []RunOption, message string) (context.Context, context.CancelFunc, *models.OrchestrationResult, *models.Context) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	actx := ro.actx
	if actx == nil {
		actx = models.NewContext(message)
	}

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if b.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
	}

	result := models.NewResult(b.name, b.cfg.Metadata)
	b.logger.Log("[run %s] started: orchestrator=%s agents=%d", result.RunID, b.name, b.agents.Len())
	b.emitter.Emit(Event{Type: EventRunStarted, RunID: result.RunID, Orchestrator: b.name, Message: message})
	return runCtx, cancel, result, actx
}

// invoke runs one agent through the middleware chain.
func (b *base) invoke(ctx context.Context, ag agent.Agent, message string, actx *models.Context) (*models.Response, error) {
	inv := &middleware.Invocation{
		Agent:     ag,
		AgentName: ag.Name(),
		Message:   message,
		Context:   actx,
		TraceID:   middleware.TraceIDFromContext(ctx),
	}
	b.emitter.Emit(Event{Type: EventTurnStarted, AgentName: ag.Name(), Orchestrator: b.name})
	return b.handler(ctx, inv)
}

// recordTurn appends a completed turn and emits its event.
func (b *base) recordTurn(result *models.OrchestrationResult, agentName string, resp *models.Response) models.Turn {
	turn := result.AddTurn(agentName, resp)
	b.logger.Log("[run %s] turn %d: agent=%s tokens=%d", result.RunID, turn.Number, agentName, resp.Usage.TotalTokens)
	b.emitter.Emit(Event{
		Type:         EventTurnCompleted,
		RunID:        result.RunID,
		Orchestrator: b.name,
		AgentName:    agentName,
		TurnNumber:   turn.Number,
		Message:      resp.Content,
		TokensUsed:   result.TotalUsage.TotalTokens,
	})
	return turn
}

// waitGate blocks on the pause gate, if one is installed.
func (b *base) waitGate(ctx context.Context) error {
	if b.gate == nil {
		return nil
	}
	return b.gate.Wait(ctx)
}

// classify maps an invocation or context error to the surfaced error
// kind. A deadline hit under a configured budget becomes a TimeoutError.
func (b *base) classify(ctx context.Context, err error) error {
	if b.cfg.Timeout > 0 && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return &errdefs.TimeoutError{Budget: b.cfg.Timeout}
	}
	return err
}

// fail finalizes the result and wraps the error with it. Every error
// surfaced from a run goes through here, so the partial result is always
// attached.
func (b *base) fail(ctx context.Context, result *models.OrchestrationResult, err error) (*models.OrchestrationResult, error) {
	err = b.classify(ctx, err)
	result.Complete()
	b.logger.Log("[run %s] failed after %d turn(s): %v", result.RunID, result.Iterations, err)
	b.emitter.Emit(Event{
		Type:         EventRunFailed,
		RunID:        result.RunID,
		Orchestrator: b.name,
		Error:        err,
		TokensUsed:   result.TotalUsage.TotalTokens,
	})
	return result, &errdefs.RunError{Result: result, Err: err}
}

// finish finalizes the result on the success path.
func (b *base) finish(result *models.OrchestrationResult) (*models.OrchestrationResult, error) {
	result.Complete()
	b.logger.Log("[run %s] completed: turns=%d tokens=%d", result.RunID, result.Iterations, result.TotalUsage.TotalTokens)
	b.emitter.Emit(Event{
		Type:         EventRunCompleted,
		RunID:        result.RunID,
		Orchestrator: b.name,
		TokensUsed:   result.TotalUsage.TotalTokens,
	})
	return result, nil
}
