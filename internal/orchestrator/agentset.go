package orchestrator

import (
	"fmt"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/pkg/errdefs"
)

// AgentSet is an ordered, name-unique collection of agent handles built
// once at orchestrator construction and read-only thereafter.
type AgentSet struct {
	names  []string
	byName map[string]agent.Agent
}

// NewAgentSet builds an agent set in the given order. Duplicate or empty
// names are a configuration error.
func NewAgentSet(agents []agent.Agent) (*AgentSet, error) {
	if len(agents) == 0 {
		return nil, &errdefs.ConfigurationError{Reason: "agent set is empty"}
	}

	set := &AgentSet{byName: make(map[string]agent.Agent, len(agents))}
	for _, a := range agents {
		name := a.Name()
		if name == "" {
			return nil, &errdefs.ConfigurationError{Reason: "agent with empty name"}
		}
		if _, exists := set.byName[name]; exists {
			return nil, &errdefs.ConfigurationError{Reason: fmt.Sprintf("duplicate agent name %q", name)}
		}
		set.names = append(set.names, name)
		set.byName[name] = a
	}
	return set, nil
}

// Get returns the named agent handle.
func (s *AgentSet) Get(name string) (agent.Agent, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Names returns agent names in construction order.
func (s *AgentSet) Names() []string {
	return s.names
}

// Len returns the number of agents in the set.
func (s *AgentSet) Len() int {
	return len(s.names)
}
