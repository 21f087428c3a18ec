package models

import "time"

// Turn is one agent's completed contribution within an orchestration run.
// Turns are immutable once created and owned by the OrchestrationResult
// that contains them.
type Turn struct {
	// AgentName identifies the agent that produced this turn.
	AgentName string
	// Response is the agent's output for this turn.
	Response *Response
	// Number is the 1-based position of the turn within the run.
	Number int
	// Timestamp is when the turn was recorded.
	Timestamp time.Time
}

// Content returns the turn's response text, or an empty string if the
// turn has no response.
func (t Turn) Content() string {
	if t.Response == nil {
		return ""
	}
	return t.Response.Content
}
