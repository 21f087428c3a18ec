package orchestrator

import (
	"context"
	"errors"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// ErrConversationDone is returned by a SpeakerSelector to signal that the
// discussion has reached a natural end (consensus, or the moderator
// elected to stop). It terminates the run normally.
var ErrConversationDone = errors.New("conversation done")

// SpeakerSelector chooses which agent speaks next in a group discussion.
type SpeakerSelector interface {
	// Next returns the name of the next speaker given the run so far.
	// Returning ErrConversationDone ends the run normally; a
	// SpeakerSelectionError fails it.
	Next(ctx context.Context, result *models.OrchestrationResult, agents *AgentSet) (string, error)
}

// chatState is the GroupChat run state.
type chatState int

const (
	stateSelectingSpeaker chatState = iota
	stateAwaitingResponse
	stateCheckingTermination
	stateDone
)

// GroupChat runs a turn-taking discussion among agents. A pluggable
// speaker-selection policy picks each next speaker; termination is
// checked after every turn against the iteration cap, the run budget,
// and the policy itself.
type GroupChat struct {
	*base
	selector SpeakerSelector
}

// Verify GroupChat implements Orchestrator at compile time.
var _ Orchestrator = (*GroupChat)(nil)

// NewGroupChat creates a group-chat orchestrator with the given speaker
// selection policy. A nil selector defaults to round-robin.
func NewGroupChat(agents []agent.Agent, selector SpeakerSelector, opts ...Option) (*GroupChat, error) {
	b, _, err := newBase(agents, opts)
	if err != nil {
		return nil, err
	}
	if selector == nil {
		selector = RoundRobin{}
	}
	return &GroupChat{base: b, selector: selector}, nil
}

// Run drives the discussion state machine: selecting-speaker ->
// awaiting-response -> checking-termination, looping until the selector
// stops, the iteration cap is reached, or the budget expires.
func (o *GroupChat) Run(ctx context.Context, message string, opts ...RunOption) (*models.OrchestrationResult, error) {
	runCtx, cancel, result, actx := o.begin(ctx, opts, message)
	defer cancel()

	if o.cfg.PreserveHistory {
		actx.Append(models.Message{Role: models.RoleUser, Content: message})
	}

	var speaker string
	state := stateSelectingSpeaker

	for state != stateDone {
		if err := o.waitGate(runCtx); err != nil {
			return o.fail(runCtx, result, err)
		}
		if err := runCtx.Err(); err != nil {
			return o.fail(runCtx, result, err)
		}

		switch state {
		case stateSelectingSpeaker:
			name, err := o.selector.Next(runCtx, result, o.agents)
			if errors.Is(err, ErrConversationDone) {
				state = stateDone
				continue
			}
			if err != nil {
				return o.fail(runCtx, result, err)
			}
			speaker = name
			state = stateAwaitingResponse

		case stateAwaitingResponse:
			ag, ok := o.agents.Get(speaker)
			if !ok {
				return o.fail(runCtx, result, &errdefs.SpeakerSelectionError{
					Reason: "selected speaker " + speaker + " is not in the agent set",
				})
			}
			resp, err := o.invoke(runCtx, ag, message, o.visible(actx))
			if err != nil {
				o.emitter.Emit(Event{Type: EventTurnFailed, RunID: result.RunID, Orchestrator: o.name, AgentName: speaker, Error: err})
				return o.fail(runCtx, result, err)
			}
			o.recordTurn(result, speaker, resp)
			if o.cfg.PreserveHistory {
				actx.Append(resp.Message)
			}
			state = stateCheckingTermination

		case stateCheckingTermination:
			if result.Iterations >= o.cfg.MaxIterations {
				state = stateDone
				continue
			}
			state = stateSelectingSpeaker
		}
	}

	return o.finish(result)
}

// visible returns the context an invocation may see.
func (o *GroupChat) visible(actx *models.Context) *models.Context {
	if o.cfg.PreserveHistory {
		return actx
	}
	return models.NewContext(actx.Task)
}
