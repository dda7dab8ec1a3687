// Package registry holds the named agents and workflows the gateway serves.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"agent-relay-gateway/internal/agent"
	"agent-relay-gateway/internal/workflows"
)

var (
	ErrAgentNotFound    = errors.New("agent not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// Registry is immutable after New and safe for concurrent reads.
type Registry struct {
	agents    map[string]*agent.Agent
	workflows map[string]*workflows.Workflow
}

func New(agents map[string]*agent.Agent, wfs map[string]*workflows.Workflow) (*Registry, error) {
	r := &Registry{
		agents:    make(map[string]*agent.Agent, len(agents)),
		workflows: make(map[string]*workflows.Workflow, len(wfs)),
	}

	for name, a := range agents {
		if name == "" || a == nil {
			return nil, fmt.Errorf("invalid agent registration %q", name)
		}
		if a.Model == nil {
			return nil, fmt.Errorf("agent %q has no model", name)
		}
		r.agents[name] = a
	}

	for name, wf := range wfs {
		if name == "" || wf == nil {
			return nil, fmt.Errorf("invalid workflow registration %q", name)
		}
		if len(wf.Steps) == 0 {
			return nil, fmt.Errorf("workflow %q has no steps", name)
		}
		for _, step := range wf.Steps {
			if step.ID == "" || step.ID == workflows.InputStep {
				return nil, fmt.Errorf("workflow %q has a step with reserved id %q", name, step.ID)
			}
		}
		r.workflows[name] = wf
	}

	return r, nil
}

func (r *Registry) Agent(name string) (*agent.Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

func (r *Registry) Workflow(name string) (*workflows.Workflow, error) {
	wf, ok := r.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}
	return wf, nil
}

func (r *Registry) AgentNames() []string {
	return sortedKeys(r.agents)
}

func (r *Registry) WorkflowNames() []string {
	return sortedKeys(r.workflows)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
