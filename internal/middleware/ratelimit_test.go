package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
)

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	// 1 token/sec with burst 2: third immediate call must be rejected.
	limiter := NewRateLimit(1, 2, RateLimitReject)
	handler := NewChain(limiter).Then(AgentHandler())

	a := agent.NewScriptedAgent("echo")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := handler(ctx, newInvocation(a, "hi")); err != nil {
			t.Fatalf("call %d should pass within burst: %v", i+1, err)
		}
	}

	_, err := handler(ctx, newInvocation(a, "hi"))
	if err == nil {
		t.Fatal("third call should be rejected")
	}

	var pe *errdefs.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if pe.Kind != errdefs.RateLimitExceeded {
		t.Errorf("Kind = %v, want RateLimitExceeded", pe.Kind)
	}
	if pe.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want a positive hint", pe.RetryAfter)
	}
	if pe.Agent != "echo" {
		t.Errorf("Agent = %q, want %q", pe.Agent, "echo")
	}
}

func TestRateLimit_WaitModeHonorsCancellation(t *testing.T) {
	limiter := NewRateLimit(0.001, 1, RateLimitWait)
	handler := NewChain(limiter).Then(AgentHandler())

	a := agent.NewScriptedAgent("echo")
	ctx := context.Background()

	// Drain the single burst token.
	if _, err := handler(ctx, newInvocation(a, "hi")); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := handler(cancelled, newInvocation(a, "hi")); err == nil {
		t.Error("wait mode should fail when the context is cancelled")
	}
}
