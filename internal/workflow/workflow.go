// Package workflow loads ensemble definitions from YAML files and builds
// runnable orchestrators from them. A workflow names its agents, picks a
// strategy, and carries the strategy-specific knobs.
package workflow

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Strategy names accepted in a workflow file.
const (
	StrategySequential = "sequential"
	StrategyConcurrent = "concurrent"
	StrategyGroupChat  = "groupchat"
	StrategyHandoff    = "handoff"
)

// Workflow is a parsed ensemble definition.
type Workflow struct {
	// Name identifies the ensemble. Defaults to the strategy name.
	Name string `yaml:"name"`
	// Strategy selects the orchestration strategy.
	Strategy string `yaml:"strategy"`
	// MaxIterations caps total turns. Zero uses the configured default.
	MaxIterations int `yaml:"max_iterations"`
	// Timeout is the wall-clock budget for a run. Zero means unbounded.
	Timeout Duration `yaml:"timeout"`
	// PreserveHistory controls cross-agent context visibility.
	PreserveHistory *bool `yaml:"preserve_history"`
	// Agents lists the participants in declaration order.
	Agents []AgentDef `yaml:"agents"`
	// GroupChat holds groupchat-only settings.
	GroupChat GroupChatDef `yaml:"groupchat"`
	// Handoff holds handoff-only settings.
	Handoff HandoffDef `yaml:"handoff"`
}

// AgentDef declares one agent in a workflow.
type AgentDef struct {
	Name         string `yaml:"name"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTokens    int64  `yaml:"max_tokens"`
	// Script supplies canned responses; a scripted agent never calls the
	// provider. Used by dry runs and tests.
	Script []ScriptStep `yaml:"script"`
}

// ScriptStep is one canned response in an agent's script.
type ScriptStep struct {
	Content string `yaml:"content"`
	Handoff string `yaml:"handoff"`
}

// GroupChatDef configures speaker selection for groupchat workflows.
type GroupChatDef struct {
	// Selector is "round_robin" (default) or "moderator".
	Selector string `yaml:"selector"`
	// Moderator names the agent that picks speakers. Required for the
	// moderator selector. The moderator does not take turns itself.
	Moderator string `yaml:"moderator"`
	// StopWord ends the discussion when the moderator's reply contains it.
	StopWord string `yaml:"stop_word"`
}

// HandoffDef configures control transfer for handoff workflows.
type HandoffDef struct {
	// Initial names the first agent to act. Defaults to the first declared.
	Initial string `yaml:"initial"`
	// Allow restricts transfers to the declared edges. Empty permits all.
	Allow map[string][]string `yaml:"allow"`
	// RepeatLimit caps repeats of the same transfer pair per run.
	RepeatLimit int `yaml:"repeat_limit"`
}

// Load reads and validates a workflow file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates workflow YAML.
func Parse(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing workflow: %w", err)
	}
	if w.Name == "" {
		w.Name = w.Strategy
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks the workflow for structural problems before any agent
// is constructed.
func (w *Workflow) Validate() error {
	switch w.Strategy {
	case StrategySequential, StrategyConcurrent, StrategyGroupChat, StrategyHandoff:
	case "":
		return fmt.Errorf("workflow: strategy is required")
	default:
		return fmt.Errorf("workflow: unknown strategy %q", w.Strategy)
	}

	if len(w.Agents) == 0 {
		return fmt.Errorf("workflow: at least one agent is required")
	}
	seen := make(map[string]bool, len(w.Agents))
	for i, a := range w.Agents {
		if a.Name == "" {
			return fmt.Errorf("workflow: agent %d has no name", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("workflow: duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}

	if w.MaxIterations < 0 {
		return fmt.Errorf("workflow: max_iterations must not be negative")
	}

	if w.Strategy == StrategyGroupChat {
		switch w.GroupChat.Selector {
		case "", "round_robin":
		case "moderator":
			if w.GroupChat.Moderator == "" {
				return fmt.Errorf("workflow: moderator selector requires a moderator agent")
			}
			if !seen[w.GroupChat.Moderator] {
				return fmt.Errorf("workflow: moderator %q is not a declared agent", w.GroupChat.Moderator)
			}
		default:
			return fmt.Errorf("workflow: unknown selector %q", w.GroupChat.Selector)
		}
	}

	if w.Strategy == StrategyHandoff {
		if w.Handoff.Initial != "" && !seen[w.Handoff.Initial] {
			return fmt.Errorf("workflow: initial agent %q is not declared", w.Handoff.Initial)
		}
		for source, targets := range w.Handoff.Allow {
			if !seen[source] {
				return fmt.Errorf("workflow: allow list source %q is not declared", source)
			}
			for _, target := range targets {
				if !seen[target] {
					return fmt.Errorf("workflow: allow list target %q is not declared", target)
				}
			}
		}
	}

	return nil
}

// Scripted reports whether every agent in the workflow carries a script.
func (w *Workflow) Scripted() bool {
	for _, a := range w.Agents {
		if len(a.Script) == 0 {
			return false
		}
	}
	return true
}
