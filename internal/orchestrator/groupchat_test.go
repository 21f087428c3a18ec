package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

func TestGroupChat_RoundRobinOrder(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha", agent.ScriptedResponse{Content: "a"}),
		agent.NewScriptedAgent("beta", agent.ScriptedResponse{Content: "b"}),
	}

	o, err := NewGroupChat(agents, nil, WithMaxIterations(5))
	if err != nil {
		t.Fatalf("NewGroupChat failed: %v", err)
	}

	result, err := o.Run(context.Background(), "discuss")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"alpha", "beta", "alpha", "beta", "alpha"}
	if len(result.Turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(result.Turns), len(want))
	}
	for i, name := range want {
		if result.Turns[i].AgentName != name {
			t.Errorf("Turns[%d].AgentName = %q, want %q", i, result.Turns[i].AgentName, name)
		}
	}
}

func TestGroupChat_AgentsInvolvedDeduplicated(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha"),
		agent.NewScriptedAgent("beta"),
	}

	o, _ := NewGroupChat(agents, nil, WithMaxIterations(6))
	result, err := o.Run(context.Background(), "discuss")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.AgentsInvolved) != 2 {
		t.Fatalf("AgentsInvolved = %v, want two entries in first-seen order", result.AgentsInvolved)
	}
	if result.AgentsInvolved[0] != "alpha" || result.AgentsInvolved[1] != "beta" {
		t.Errorf("AgentsInvolved = %v, want [alpha beta]", result.AgentsInvolved)
	}
}

// stoppingSelector picks alpha a fixed number of times, then ends the
// discussion.
type stoppingSelector struct {
	remaining int
}

func (s *stoppingSelector) Next(ctx context.Context, result *models.OrchestrationResult, agents *AgentSet) (string, error) {
	if s.remaining == 0 {
		return "", ErrConversationDone
	}
	s.remaining--
	return agents.Names()[0], nil
}

func TestGroupChat_SelectorTerminatesNormally(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha"),
		agent.NewScriptedAgent("beta"),
	}

	o, _ := NewGroupChat(agents, &stoppingSelector{remaining: 3}, WithMaxIterations(50))
	result, err := o.Run(context.Background(), "discuss")
	if err != nil {
		t.Fatalf("selector stop should terminate normally, got %v", err)
	}
	if result.Len() != 3 {
		t.Errorf("got %d turns, want 3", result.Len())
	}
	if !result.Completed() {
		t.Error("result should be finalized")
	}
}

func TestGroupChat_ModeratorPicksSpeakersThenStops(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha", agent.ScriptedResponse{Content: "idea"}),
		agent.NewScriptedAgent("beta", agent.ScriptedResponse{Content: "critique"}),
	}
	moderator := agent.NewScriptedAgent("moderator",
		agent.ScriptedResponse{Content: "beta"},
		agent.ScriptedResponse{Content: "alpha should go next"},
		agent.ScriptedResponse{Content: "TERMINATE"},
	)

	o, _ := NewGroupChat(agents, &Moderator{Agent: moderator}, WithMaxIterations(20))
	result, err := o.Run(context.Background(), "discuss")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"beta", "alpha"}
	if len(result.Turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(result.Turns), len(want))
	}
	for i, name := range want {
		if result.Turns[i].AgentName != name {
			t.Errorf("Turns[%d].AgentName = %q, want %q", i, result.Turns[i].AgentName, name)
		}
	}
}

func TestGroupChat_ModeratorAmbiguousReply(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha"),
		agent.NewScriptedAgent("beta"),
	}
	moderator := agent.NewScriptedAgent("moderator",
		agent.ScriptedResponse{Content: "either alpha or beta could speak"},
	)

	o, _ := NewGroupChat(agents, &Moderator{Agent: moderator})
	_, err := o.Run(context.Background(), "discuss")
	if err == nil {
		t.Fatal("ambiguous moderator reply should fail the run")
	}
	var se *errdefs.SpeakerSelectionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SpeakerSelectionError", err)
	}
	if len(se.Candidates) != 2 {
		t.Errorf("Candidates = %v, want both matched names", se.Candidates)
	}
}

func TestGroupChat_ModeratorUnknownReply(t *testing.T) {
	agents := []agent.Agent{agent.NewScriptedAgent("alpha")}
	moderator := agent.NewScriptedAgent("moderator",
		agent.ScriptedResponse{Content: "let gamma speak"},
	)

	o, _ := NewGroupChat(agents, &Moderator{Agent: moderator})
	_, err := o.Run(context.Background(), "discuss")
	var se *errdefs.SpeakerSelectionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SpeakerSelectionError", err)
	}
}

func TestGroupChat_ModeratorWholeWordMatching(t *testing.T) {
	// "alphabet" must not match agent "alpha".
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha"),
		agent.NewScriptedAgent("beta"),
	}
	moderator := agent.NewScriptedAgent("moderator",
		agent.ScriptedResponse{Content: "the alphabet agent, beta, should speak"},
		agent.ScriptedResponse{Content: "TERMINATE"},
	)

	o, _ := NewGroupChat(agents, &Moderator{Agent: moderator})
	result, err := o.Run(context.Background(), "discuss")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Turns[0].AgentName != "beta" {
		t.Errorf("speaker = %q, want beta", result.Turns[0].AgentName)
	}
}

func TestGroupChat_ModeratorCustomStopWord(t *testing.T) {
	agents := []agent.Agent{agent.NewScriptedAgent("alpha")}
	moderator := agent.NewScriptedAgent("moderator",
		agent.ScriptedResponse{Content: "DONE"},
	)

	o, _ := NewGroupChat(agents, &Moderator{Agent: moderator, StopWord: "DONE"})
	result, err := o.Run(context.Background(), "discuss")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("got %d turns, want 0 when stopped before any turn", result.Len())
	}
}
