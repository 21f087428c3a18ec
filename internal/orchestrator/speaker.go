package orchestrator

import (
	"context"
	"strings"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// RoundRobin selects speakers in agent-set order, cycling indefinitely.
// It never signals termination on its own; the iteration cap ends the
// discussion.
type RoundRobin struct{}

// Verify RoundRobin implements SpeakerSelector at compile time.
var _ SpeakerSelector = RoundRobin{}

// Next returns the agent whose position matches the number of completed
// turns.
func (RoundRobin) Next(ctx context.Context, result *models.OrchestrationResult, agents *AgentSet) (string, error) {
	names := agents.Names()
	return names[result.Iterations%len(names)], nil
}

// Moderator delegates speaker selection to a designated moderator agent,
// which sees the discussion so far and replies with the next speaker's
// name, or a stop word to end the discussion.
type Moderator struct {
	// Agent is the moderator. It is consulted directly, outside the
	// middleware chain, and its calls do not produce turns.
	Agent agent.Agent
	// StopWord ends the discussion when the moderator's reply contains
	// it. Defaults to "TERMINATE".
	StopWord string
}

// Verify Moderator implements SpeakerSelector at compile time.
var _ SpeakerSelector = (*Moderator)(nil)

// Next asks the moderator to pick the next speaker. The reply must
// resolve to exactly one agent in the set; anything else is a
// speaker-selection error.
func (m *Moderator) Next(ctx context.Context, result *models.OrchestrationResult, agents *AgentSet) (string, error) {
	stopWord := m.StopWord
	if stopWord == "" {
		stopWord = "TERMINATE"
	}

	prompt := m.buildPrompt(result, agents, stopWord)
	resp, err := m.Agent.Run(ctx, prompt, nil)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Content)
	if strings.Contains(reply, stopWord) {
		return "", ErrConversationDone
	}

	// The reply must name exactly one agent.
	var matches []string
	for _, name := range agents.Names() {
		if containsName(reply, name) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", &errdefs.SpeakerSelectionError{
			Reason: "moderator reply " + quoteReply(reply) + " names no known agent",
		}
	default:
		return "", &errdefs.SpeakerSelectionError{Candidates: matches}
	}
}

// buildPrompt renders the discussion transcript and the selection
// instruction for the moderator.
func (m *Moderator) buildPrompt(result *models.OrchestrationResult, agents *AgentSet, stopWord string) string {
	var b strings.Builder
	b.WriteString("You are moderating a discussion between these agents: ")
	b.WriteString(strings.Join(agents.Names(), ", "))
	b.WriteString(".\n\nTranscript so far:\n")
	for _, turn := range result.Turns {
		b.WriteString(turn.AgentName)
		b.WriteString(": ")
		b.WriteString(turn.Content())
		b.WriteString("\n")
	}
	b.WriteString("\nReply with only the name of the agent who should speak next, or ")
	b.WriteString(stopWord)
	b.WriteString(" if the discussion is complete.")
	return b.String()
}

// containsName reports whether the reply mentions an agent name as a
// whole word.
func containsName(reply, name string) bool {
	idx := strings.Index(reply, name)
	for idx >= 0 {
		before := idx == 0 || isBoundary(reply[idx-1])
		afterIdx := idx + len(name)
		after := afterIdx == len(reply) || isBoundary(reply[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(reply[idx+1:], name)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isBoundary(c byte) bool {
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-')
}

// quoteReply quotes a reply for error messages, truncating long replies.
func quoteReply(s string) string {
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return "\"" + s + "\""
}
