package workflow

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/internal/config"
	"github.com/ensembleai/ensemble/internal/middleware"
	"github.com/ensembleai/ensemble/internal/orchestrator"
)

// BuildOptions adjusts orchestrator construction beyond what the
// workflow file declares.
type BuildOptions struct {
	// DryRun replaces every agent with a scripted stand-in so no
	// provider call happens. Agents without a script echo their input.
	DryRun bool
	// Logger receives debug lines from the orchestrator and middleware.
	Logger *orchestrator.DebugLogger
	// Gate pauses the run between turns when installed.
	Gate orchestrator.Gate
}

// Build constructs a runnable orchestrator from a validated workflow.
func Build(w *Workflow, cfg *config.Config, opts BuildOptions) (orchestrator.Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	agents := make([]agent.Agent, 0, len(w.Agents))
	byName := make(map[string]agent.Agent, len(w.Agents))
	for _, def := range w.Agents {
		a, err := buildAgent(def, cfg, opts.DryRun)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.Name, err)
		}
		byName[def.Name] = a
		agents = append(agents, a)
	}

	oopts := []orchestrator.Option{
		orchestrator.WithName(w.Name),
	}
	if w.MaxIterations > 0 {
		oopts = append(oopts, orchestrator.WithMaxIterations(w.MaxIterations))
	} else if cfg.Orchestration.MaxIterations > 0 {
		oopts = append(oopts, orchestrator.WithMaxIterations(cfg.Orchestration.MaxIterations))
	}
	if w.Timeout > 0 {
		oopts = append(oopts, orchestrator.WithTimeout(w.Timeout.Std()))
	} else if cfg.Orchestration.Timeout > 0 {
		oopts = append(oopts, orchestrator.WithTimeout(cfg.Orchestration.Timeout))
	}
	if w.PreserveHistory != nil {
		oopts = append(oopts, orchestrator.WithPreserveHistory(*w.PreserveHistory))
	} else {
		oopts = append(oopts, orchestrator.WithPreserveHistory(cfg.Orchestration.PreserveHistory))
	}
	if opts.Logger != nil {
		oopts = append(oopts, orchestrator.WithLogger(opts.Logger))
	}
	if opts.Gate != nil {
		oopts = append(oopts, orchestrator.WithGate(opts.Gate))
	}

	chain, err := BuildChain(cfg, opts.Logger)
	if err != nil {
		return nil, err
	}
	oopts = append(oopts, orchestrator.WithMiddleware(chain))

	switch w.Strategy {
	case StrategySequential:
		return orchestrator.NewSequential(agents, oopts...)

	case StrategyConcurrent:
		return orchestrator.NewConcurrent(agents, oopts...)

	case StrategyGroupChat:
		var selector orchestrator.SpeakerSelector
		if w.GroupChat.Selector == "moderator" {
			moderator := byName[w.GroupChat.Moderator]
			selector = &orchestrator.Moderator{Agent: moderator, StopWord: w.GroupChat.StopWord}
			// The moderator picks speakers; it does not take turns.
			agents = withoutAgent(agents, w.GroupChat.Moderator)
		}
		return orchestrator.NewGroupChat(agents, selector, oopts...)

	case StrategyHandoff:
		var strategy orchestrator.HandoffStrategy
		if len(w.Handoff.Allow) > 0 {
			strategy = &orchestrator.AllowList{Edges: w.Handoff.Allow}
		}
		if w.Handoff.RepeatLimit > 0 {
			oopts = append(oopts, orchestrator.WithHandoffRepeatLimit(w.Handoff.RepeatLimit))
		}
		return orchestrator.NewHandoff(agents, w.Handoff.Initial, strategy, oopts...)
	}

	return nil, fmt.Errorf("workflow: unknown strategy %q", w.Strategy)
}

// BuildChain assembles the middleware chain the configuration enables.
// Order is fixed: tracing, logging, rate limit, cache, retry. Cache hits
// short-circuit before retry and the provider call.
func BuildChain(cfg *config.Config, logger *orchestrator.DebugLogger) (*middleware.Chain, error) {
	chain := middleware.NewChain(middleware.NewTracing())

	if logger != nil {
		chain.Use(middleware.NewLogging(logger))
	}

	if cfg.RateLimit.Enabled {
		mode := middleware.RateLimitReject
		if cfg.RateLimit.Mode == "wait" {
			mode = middleware.RateLimitWait
		}
		chain.Use(middleware.NewRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, mode))
	}

	if cfg.Cache.Enabled {
		var store middleware.Store
		if cfg.Cache.Path != "" {
			s, err := middleware.NewSQLiteStore(cfg.Cache.Path)
			if err != nil {
				return nil, fmt.Errorf("opening cache store: %w", err)
			}
			store = s
		} else {
			store = middleware.NewMemoryStore()
		}
		chain.Use(middleware.NewCache(store))
	}

	if cfg.Retry.MaxAttempts > 1 {
		chain.Use(middleware.NewRetry(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff))
	}

	return chain, nil
}

// buildAgent constructs one agent from its definition. Scripted
// definitions and dry runs never reach the provider.
func buildAgent(def AgentDef, cfg *config.Config, dryRun bool) (agent.Agent, error) {
	if len(def.Script) > 0 || dryRun {
		responses := make([]agent.ScriptedResponse, 0, len(def.Script))
		for _, step := range def.Script {
			responses = append(responses, agent.ScriptedResponse{Content: step.Content, Handoff: step.Handoff})
		}
		return agent.NewScriptedAgent(def.Name, responses...), nil
	}

	model := def.Model
	if model == "" {
		model = cfg.Defaults.Model
	}
	maxTokens := def.MaxTokens
	if maxTokens == 0 {
		maxTokens = int64(cfg.Defaults.MaxTokens)
	}
	apiKey, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.Anthropic.UseBedrock {
		return nil, err
	}

	return agent.NewClaudeAgent(agent.ClaudeConfig{
		Name:          def.Name,
		Model:         anthropic.Model(model),
		SystemPrompt:  def.SystemPrompt,
		MaxTokens:     maxTokens,
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
	})
}

func withoutAgent(agents []agent.Agent, name string) []agent.Agent {
	out := agents[:0]
	for _, a := range agents {
		if a.Name() != name {
			out = append(out, a)
		}
	}
	return out
}
