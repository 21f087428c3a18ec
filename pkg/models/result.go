package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// OrchestrationResult is the aggregate, append-only record of an
// orchestration run. It is created empty at run start, mutated only by the
// orchestrator driving the run, finalized exactly once, and read-only
// thereafter.
//
// AddTurn is the single mutation point all strategies route through; it is
// serialized internally so concurrent strategies can funnel completions
// into one result without additional locking.
type OrchestrationResult struct {
	// RunID uniquely identifies the run.
	RunID string
	// OrchestratorName is the name of the orchestrator that drove the run.
	OrchestratorName string
	// Turns is the ordered sequence of completed turns. Insertion order
	// is completion order.
	Turns []Turn
	// FinalResponse is the run's final output, if any. For strategies
	// without an explicit final answer it is derived from the last turn
	// at completion.
	FinalResponse *Response
	// TotalUsage is the accumulated token usage across all turns.
	TotalUsage Usage
	// AgentsInvolved is the deduplicated set of agent names that
	// produced turns, in first-seen order.
	AgentsInvolved []string
	// Iterations counts completed turns. Always equals len(Turns).
	Iterations int
	// StartedAt is when the run began.
	StartedAt time.Time
	// CompletedAt is when the run finalized. Zero until Complete is
	// called.
	CompletedAt time.Time
	// Metadata is an opaque mapping attached at run start.
	Metadata map[string]any

	mu       sync.Mutex
	seen     map[string]bool
	finalSet bool
}

// NewResult creates an empty result for a run driven by the named
// orchestrator.
func NewResult(orchestratorName string, metadata map[string]any) *OrchestrationResult {
	return &OrchestrationResult{
		RunID:            uuid.New().String(),
		OrchestratorName: orchestratorName,
		StartedAt:        time.Now(),
		Metadata:         metadata,
		seen:             make(map[string]bool),
	}
}

// AddTurn appends a turn for the given agent and returns it. It assigns
// the next turn number, records the agent in AgentsInvolved if newly seen,
// accumulates the response's usage, and increments the iteration counter.
// Safe for use from multiple goroutines; appends are serialized.
func (r *OrchestrationResult) AddTurn(agentName string, resp *Response) Turn {
	r.mu.Lock()
	defer r.mu.Unlock()

	turn := Turn{
		AgentName: agentName,
		Response:  resp,
		Number:    len(r.Turns) + 1,
		Timestamp: time.Now(),
	}
	r.Turns = append(r.Turns, turn)
	r.Iterations = len(r.Turns)

	if !r.seen[agentName] {
		r.seen[agentName] = true
		r.AgentsInvolved = append(r.AgentsInvolved, agentName)
	}
	if resp != nil {
		r.TotalUsage.Add(resp.Usage)
	}
	return turn
}

// SetFinalResponse sets an explicit final response, overriding the
// last-turn derivation in Complete.
func (r *OrchestrationResult) SetFinalResponse(resp *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinalResponse = resp
	r.finalSet = true
}

// Complete finalizes the result. It is idempotent: CompletedAt is set at
// most once, and FinalResponse is derived from the last turn only if it
// was not already set explicitly.
func (r *OrchestrationResult) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.CompletedAt.IsZero() {
		return
	}
	r.CompletedAt = time.Now()

	if !r.finalSet && r.FinalResponse == nil && len(r.Turns) > 0 {
		r.FinalResponse = r.Turns[len(r.Turns)-1].Response
	}
}

// Completed reports whether the result has been finalized.
func (r *OrchestrationResult) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.CompletedAt.IsZero()
}

// Content returns the final response text. If no final response is set it
// falls back to the last turn's content, or an empty string when the run
// produced no turns.
func (r *OrchestrationResult) Content() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FinalResponse != nil {
		return r.FinalResponse.Content
	}
	if len(r.Turns) > 0 {
		return r.Turns[len(r.Turns)-1].Content()
	}
	return ""
}

// AllMessages returns every turn's message in turn order.
func (r *OrchestrationResult) AllMessages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]Message, 0, len(r.Turns))
	for _, t := range r.Turns {
		if t.Response != nil {
			msgs = append(msgs, t.Response.Message)
		}
	}
	return msgs
}

// Duration returns the wall-clock duration of the run. The boolean is
// false until the result has been finalized.
func (r *OrchestrationResult) Duration() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CompletedAt.IsZero() {
		return 0, false
	}
	return r.CompletedAt.Sub(r.StartedAt), true
}

// Len returns the number of turns recorded so far.
func (r *OrchestrationResult) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Turns)
}
