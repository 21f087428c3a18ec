package orchestrator

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

func TestConcurrent_AllAgentsRunOnce(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha", agent.ScriptedResponse{Content: "a", Usage: models.NewUsage(10, 5)}),
		agent.NewScriptedAgent("beta", agent.ScriptedResponse{Content: "b", Usage: models.NewUsage(20, 5)}),
		agent.NewScriptedAgent("gamma", agent.ScriptedResponse{Content: "c", Usage: models.NewUsage(30, 5)}),
	}

	o, err := NewConcurrent(agents)
	if err != nil {
		t.Fatalf("NewConcurrent failed: %v", err)
	}

	result, err := o.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Len() != 3 {
		t.Fatalf("got %d turns, want 3", result.Len())
	}
	names := make([]string, 0, 3)
	for _, turn := range result.Turns {
		names = append(names, turn.AgentName)
	}
	sort.Strings(names)
	want := []string{"alpha", "beta", "gamma"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("agents in turns = %v, want %v", names, want)
			break
		}
	}
	if result.TotalUsage.TotalTokens != 75 {
		t.Errorf("TotalUsage.TotalTokens = %d, want 75", result.TotalUsage.TotalTokens)
	}
	if result.Iterations != len(result.Turns) {
		t.Errorf("Iterations = %d, want %d", result.Iterations, len(result.Turns))
	}
}

func TestConcurrent_TurnsInCompletionOrder(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("slow", agent.ScriptedResponse{Content: "s"}).WithDelay(80 * time.Millisecond),
		agent.NewScriptedAgent("quick", agent.ScriptedResponse{Content: "q"}),
	}

	o, _ := NewConcurrent(agents)
	result, err := o.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Turns[0].AgentName != "quick" {
		t.Errorf("first turn = %q, want the faster agent", result.Turns[0].AgentName)
	}
	if result.Turns[1].Number != 2 {
		t.Errorf("second turn has Number %d, want 2", result.Turns[1].Number)
	}
}

func TestConcurrent_PartialFailureEnumeratesFailedAgents(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha", agent.ScriptedResponse{Content: "a"}),
		&failingAgent{name: "beta", err: errors.New("boom")},
		agent.NewScriptedAgent("gamma", agent.ScriptedResponse{Content: "c"}),
	}

	o, _ := NewConcurrent(agents)
	result, err := o.Run(context.Background(), "go")
	if err == nil {
		t.Fatal("Run should fail when any agent fails")
	}

	var runErr *errdefs.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("err = %v, want RunError", err)
	}
	var pf *errdefs.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want PartialFailure inside", err)
	}
	failed := pf.FailedAgents()
	if len(failed) != 1 || failed[0] != "beta" {
		t.Errorf("FailedAgents = %v, want [beta]", failed)
	}

	// The two successful agents still contributed their turns.
	if result.Len() != 2 {
		t.Errorf("got %d turns, want 2", result.Len())
	}
	for _, turn := range result.Turns {
		if turn.AgentName == "beta" {
			t.Error("failed agent must not appear in turns")
		}
	}
	if result.FinalResponse != nil {
		t.Errorf("FinalResponse = %+v, want unset on partial failure", result.FinalResponse)
	}
}

func TestConcurrent_NoFinalResponseWithoutAggregator(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha", agent.ScriptedResponse{Content: "a"}),
		agent.NewScriptedAgent("beta", agent.ScriptedResponse{Content: "b"}),
	}

	o, _ := NewConcurrent(agents)
	result, err := o.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalResponse != nil {
		t.Errorf("FinalResponse = %v, want unset without an aggregator", result.FinalResponse)
	}
	// Content still falls back to the last recorded turn.
	if result.Content() == "" {
		t.Error("Content should fall back to the last turn")
	}
}

func TestConcurrent_AggregatorSetsFinalResponse(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("alpha", agent.ScriptedResponse{Content: "a"}),
		agent.NewScriptedAgent("beta", agent.ScriptedResponse{Content: "b"}),
	}

	agg := func(turns []models.Turn) *models.Response {
		return models.NewResponse("aggregate", "merged", models.Usage{})
	}

	o, _ := NewConcurrent(agents, WithAggregator(agg))
	result, err := o.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalResponse == nil || result.FinalResponse.Content != "merged" {
		t.Errorf("FinalResponse = %v, want the aggregated response", result.FinalResponse)
	}
}

func TestConcurrent_TimeoutTerminatesPromptly(t *testing.T) {
	agents := []agent.Agent{
		agent.NewScriptedAgent("sleeper", agent.ScriptedResponse{Content: "zzz"}).WithDelay(10 * time.Second),
	}

	o, _ := NewConcurrent(agents, WithTimeout(10*time.Millisecond))

	start := time.Now()
	result, err := o.Run(context.Background(), "go")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Run should fail on timeout")
	}
	var te *errdefs.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
	if te.Budget != 10*time.Millisecond {
		t.Errorf("Budget = %v, want the configured timeout", te.Budget)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Run took %v, must not wait out the sleeping agent", elapsed)
	}
	if result.FinalResponse != nil {
		t.Errorf("FinalResponse = %+v, want unset on timeout", result.FinalResponse)
	}
}

func TestConcurrent_AgentsSeeIsolatedContexts(t *testing.T) {
	first := &probeAgent{name: "first"}
	second := &probeAgent{name: "second"}

	o, _ := NewConcurrent([]agent.Agent{first, second})
	if _, err := o.Run(context.Background(), "task"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Each agent sees only the user message, never a sibling's output.
	if first.seenHistory[0] != 1 || second.seenHistory[0] != 1 {
		t.Errorf("history sizes = %d, %d; want 1, 1", first.seenHistory[0], second.seenHistory[0])
	}
}
