package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/models"
)

// recorder is a middleware that records entry and exit order.
type recorder struct {
	name  string
	trail *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	*r.trail = append(*r.trail, r.name+":in")
	resp, err := next(ctx, inv)
	*r.trail = append(*r.trail, r.name+":out")
	return resp, err
}

// shortCircuit returns a fixed response without calling next.
type shortCircuit struct{ content string }

func (s *shortCircuit) Name() string { return "shortcircuit" }

func (s *shortCircuit) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	return models.NewResponse(inv.AgentName, s.content, models.Usage{}), nil
}

func newInvocation(a agent.Agent, message string) *Invocation {
	return &Invocation{
		Agent:     a,
		AgentName: a.Name(),
		Message:   message,
		Context:   models.NewContext(message),
	}
}

func TestChain_NestedWrapperOrder(t *testing.T) {
	var trail []string
	chain := NewChain(
		&recorder{name: "outer", trail: &trail},
		&recorder{name: "middle", trail: &trail},
		&recorder{name: "inner", trail: &trail},
	)

	a := agent.NewScriptedAgent("echo")
	handler := chain.Then(AgentHandler())

	resp, err := handler(context.Background(), newInvocation(a, "hi"))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if resp.Content != "hi" {
		t.Errorf("response = %q, want echoed input", resp.Content)
	}

	want := []string{"outer:in", "middle:in", "inner:in", "inner:out", "middle:out", "outer:out"}
	if len(trail) != len(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
	for i := range want {
		if trail[i] != want[i] {
			t.Errorf("trail[%d] = %q, want %q", i, trail[i], want[i])
		}
	}
}

func TestChain_ShortCircuitSkipsDownstream(t *testing.T) {
	var trail []string
	chain := NewChain(
		&recorder{name: "outer", trail: &trail},
		&shortCircuit{content: "cached"},
		&recorder{name: "inner", trail: &trail},
	)

	called := false
	final := func(ctx context.Context, inv *Invocation) (*models.Response, error) {
		called = true
		return nil, errors.New("should not be reached")
	}

	a := agent.NewScriptedAgent("echo")
	resp, err := chain.Then(final)(context.Background(), newInvocation(a, "hi"))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if resp.Content != "cached" {
		t.Errorf("response = %q, want short-circuit value", resp.Content)
	}
	if called {
		t.Error("final handler should not have been invoked")
	}
	for _, step := range trail {
		if step == "inner:in" {
			t.Error("middleware after the short circuit should not run")
		}
	}
}

func TestChain_EmptyChainIsFinalHandler(t *testing.T) {
	chain := NewChain()
	a := agent.NewScriptedAgent("echo")

	resp, err := chain.Then(AgentHandler())(context.Background(), newInvocation(a, "direct"))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if resp.Content != "direct" {
		t.Errorf("response = %q, want %q", resp.Content, "direct")
	}
}

func TestChain_ErrorPropagatesThroughStack(t *testing.T) {
	var trail []string
	chain := NewChain(&recorder{name: "outer", trail: &trail})

	wantErr := fmt.Errorf("agent exploded")
	final := func(ctx context.Context, inv *Invocation) (*models.Response, error) {
		return nil, wantErr
	}

	a := agent.NewScriptedAgent("echo")
	_, err := chain.Then(final)(context.Background(), newInvocation(a, "hi"))
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	// The recorder still unwound.
	if len(trail) != 2 || trail[1] != "outer:out" {
		t.Errorf("trail = %v, want outer to unwind on error", trail)
	}
}
