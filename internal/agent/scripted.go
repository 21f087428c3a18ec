package agent

import (
	"context"
	"sync"
	"time"

	"github.com/ensembleai/ensemble/pkg/models"
)

// ScriptedResponse is one canned response for a ScriptedAgent.
type ScriptedResponse struct {
	// Content is the response text.
	Content string
	// Handoff optionally names a target agent to hand control to.
	Handoff string
	// Usage is reported on the response. Zero usage is allowed.
	Usage models.Usage
}

// ScriptedAgent is a deterministic Agent that replays canned responses in
// order, cycling when exhausted. It backs dry runs and tests where no
// provider call should happen.
type ScriptedAgent struct {
	name      string
	responses []ScriptedResponse
	delay     time.Duration

	mu   sync.Mutex
	next int
}

// Verify ScriptedAgent implements Agent at compile time.
var _ Agent = (*ScriptedAgent)(nil)

// NewScriptedAgent creates a scripted agent replaying the given responses.
// With no responses it echoes the incoming message.
func NewScriptedAgent(name string, responses ...ScriptedResponse) *ScriptedAgent {
	return &ScriptedAgent{name: name, responses: responses}
}

// WithDelay makes each Run sleep for d before responding, to simulate
// provider latency. Returns the agent for chaining.
func (a *ScriptedAgent) WithDelay(d time.Duration) *ScriptedAgent {
	a.delay = d
	return a
}

// Name returns the agent's identifier.
func (a *ScriptedAgent) Name() string {
	return a.name
}

// Run returns the next canned response. The optional delay is
// interruptible by context cancellation.
func (a *ScriptedAgent) Run(ctx context.Context, message string, actx *models.Context) (*models.Response, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	var scripted ScriptedResponse
	if len(a.responses) == 0 {
		scripted = ScriptedResponse{Content: message}
	} else {
		scripted = a.responses[a.next%len(a.responses)]
		a.next++
	}
	a.mu.Unlock()

	resp := models.NewResponse(a.name, scripted.Content, scripted.Usage)
	resp.Handoff = scripted.Handoff
	return resp, nil
}
