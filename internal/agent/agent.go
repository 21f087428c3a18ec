// Package agent defines the agent contract consumed by the orchestration
// engine and provides the built-in implementations: a Claude-backed agent
// using the Anthropic Messages API and a deterministic scripted agent for
// offline runs and tests.
package agent

import (
	"context"

	"github.com/ensembleai/ensemble/pkg/models"
)

// Agent is the invocation contract the orchestration engine drives.
//
// Implementations must:
//   - Respect context cancellation; a Run call is a long-latency network
//     operation and must return promptly when the context is done.
//   - Treat the passed Context as read-only; history threading is owned
//     by the orchestrator.
//   - Report token usage on the returned response when known.
type Agent interface {
	// Name returns the agent's identifier, unique within an
	// orchestrator's agent set.
	Name() string

	// Run processes a message with the given conversational context and
	// returns the agent's response.
	Run(ctx context.Context, message string, actx *models.Context) (*models.Response, error)
}
