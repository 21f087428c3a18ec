package orchestrator

import (
	"time"

	"github.com/ensembleai/ensemble/internal/middleware"
	"github.com/ensembleai/ensemble/pkg/models"
)

// Aggregator derives a final response from a concurrent run's completed
// turns. Without one, a concurrent run leaves FinalResponse unset and
// callers inspect Turns directly.
type Aggregator func(turns []models.Turn) *models.Response

// Option configures an orchestrator at construction. Use With* functions
// to create Options.
type Option func(*options)

// options holds all optional construction parameters.
type options struct {
	cfg         Config
	chain       *middleware.Chain
	logger      *DebugLogger
	gate        Gate
	eventBuffer int

	// Concurrent only.
	aggregator Aggregator

	// Handoff only.
	repeatLimit int
}

func defaultOptions() *options {
	return &options{
		cfg:         DefaultConfig(),
		chain:       middleware.NewChain(),
		logger:      NopLogger(),
		eventBuffer: 64,
		repeatLimit: 3,
	}
}

// WithName sets the orchestrator's name.
func WithName(name string) Option {
	return func(o *options) { o.cfg.Name = name }
}

// WithMaxIterations caps total turns across a run.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.cfg.MaxIterations = n }
}

// WithTimeout sets the wall-clock budget for a whole run.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.cfg.Timeout = d }
}

// WithPreserveHistory controls whether prior turns are visible to
// subsequent agent invocations.
func WithPreserveHistory(preserve bool) Option {
	return func(o *options) { o.cfg.PreserveHistory = preserve }
}

// WithMetadata attaches an opaque mapping to every result.
func WithMetadata(metadata map[string]any) Option {
	return func(o *options) { o.cfg.Metadata = metadata }
}

// WithMiddleware installs the middleware chain wrapped around every agent
// invocation.
func WithMiddleware(chain *middleware.Chain) Option {
	return func(o *options) {
		if chain != nil {
			o.chain = chain
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *DebugLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGate installs a pause gate consulted between turns by the
// sequential-family strategies.
func WithGate(gate Gate) Option {
	return func(o *options) { o.gate = gate }
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// WithAggregator supplies the aggregation rule a Concurrent orchestrator
// uses to derive its final response.
func WithAggregator(agg Aggregator) Option {
	return func(o *options) { o.aggregator = agg }
}

// WithHandoffRepeatLimit sets how many times the same (source, target)
// handoff pair may repeat within one run before the run aborts.
func WithHandoffRepeatLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.repeatLimit = n
		}
	}
}
