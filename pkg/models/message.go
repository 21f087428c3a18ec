// Package models contains the core data model shared across the Ensemble
// orchestration engine: messages, responses, turns, usage accounting, and
// the orchestration result aggregate.
package models

// Role identifies the sender of a message.
type Role string

const (
	// RoleUser is a message originating from the caller.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by an agent.
	RoleAssistant Role = "assistant"
	// RoleSystem is an instruction message.
	RoleSystem Role = "system"
)

// Message is a single conversational message.
type Message struct {
	// Role is the sender of the message.
	Role Role
	// Content is the message text.
	Content string
	// Name identifies the agent that produced the message, if any.
	Name string
}

// Response is the output of one agent invocation.
type Response struct {
	// Content is the response text.
	Content string
	// Message is the full assistant message for the response.
	Message Message
	// Usage is the token consumption of the invocation that produced
	// this response.
	Usage Usage
	// Handoff optionally names a target agent that should continue the
	// conversation. Only the Handoff orchestrator interprets it.
	Handoff string
}

// NewResponse creates a Response with its assistant message derived from
// the content and agent name.
func NewResponse(agentName, content string, usage Usage) *Response {
	return &Response{
		Content: content,
		Message: Message{Role: RoleAssistant, Content: content, Name: agentName},
		Usage:   usage,
	}
}
