// Package middleware provides the interception chain wrapped around every
// agent invocation. Middlewares compose in registration order on the way
// in and reverse order on the way out; the chain is folded into a single
// handler at build time rather than dispatched dynamically.
package middleware

import (
	"context"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/models"
)

// Invocation carries one agent invocation through the chain. Middlewares
// may inspect and modify the outgoing request but must not mutate the
// orchestration result; only the orchestrator does that.
type Invocation struct {
	// Agent is the agent being invoked.
	Agent agent.Agent
	// AgentName is the agent's identifier.
	AgentName string
	// Message is the input message for this invocation.
	Message string
	// Context is the conversational context threaded by the orchestrator.
	Context *models.Context
	// TraceID correlates this invocation with its run and any nested
	// invocations. Set by the tracing middleware when empty.
	TraceID string
	// Metadata carries opaque per-invocation annotations.
	Metadata map[string]string
}

// Handler invokes the remainder of the chain, ending at the real agent
// call.
type Handler func(ctx context.Context, inv *Invocation) (*models.Response, error)

// Middleware intercepts an agent invocation. An implementation may modify
// the invocation, short-circuit by not calling next, transform the
// response, or translate errors from next.
type Middleware interface {
	// Name identifies the middleware in errors and logs.
	Name() string
	// Intercept processes the invocation, calling next to continue the
	// chain.
	Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error)
}

// Chain is an ordered middleware pipeline.
type Chain struct {
	stack []Middleware
}

// NewChain creates a chain with the given middlewares in execution order.
func NewChain(mws ...Middleware) *Chain {
	return &Chain{stack: mws}
}

// Use appends middlewares to the chain.
func (c *Chain) Use(mws ...Middleware) {
	c.stack = append(c.stack, mws...)
}

// Len returns the number of installed middlewares.
func (c *Chain) Len() int {
	return len(c.stack)
}

// Then folds the chain around the final handler, right to left, so the
// first registered middleware runs outermost.
func (c *Chain) Then(final Handler) Handler {
	h := final
	for i := len(c.stack) - 1; i >= 0; i-- {
		mw := c.stack[i]
		inner := h
		h = func(ctx context.Context, inv *Invocation) (*models.Response, error) {
			return mw.Intercept(ctx, inv, inner)
		}
	}
	return h
}

// AgentHandler returns the terminal handler that performs the real agent
// call.
func AgentHandler() Handler {
	return func(ctx context.Context, inv *Invocation) (*models.Response, error) {
		return inv.Agent.Run(ctx, inv.Message, inv.Context)
	}
}
