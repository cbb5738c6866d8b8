// Package registry holds the process-wide agent registry (§5): the only
// other piece of mutable shared state besides the AssignmentLedger. Agents
// live here only in memory — recreated from register_agent calls after a
// restart, never persisted. Grounded on the teacher's in-memory session
// registry pattern (a concurrent map guarded per key, not one coarse lock).
package registry

import (
	"sync"
	"time"

	"github.com/coordinator/agent-board/internal/apperr"
	domainagent "github.com/coordinator/agent-board/internal/domain/agent"
)

type Registry struct {
	mu     sync.RWMutex
	agents map[string]*agentEntry
}

type agentEntry struct {
	mu    sync.Mutex // serializes tool calls for this agent_id (§5)
	agent domainagent.Agent
}

func New() *Registry {
	return &Registry{agents: make(map[string]*agentEntry)}
}

// Register adds a new live agent. Returns a *apperr.Error with
// KindDuplicateAgent if agent_id is already registered.
func (r *Registry) Register(id, name, role string, skills []string) (domainagent.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[id]; ok {
		return domainagent.Agent{}, apperr.Newf(apperr.KindDuplicateAgent, "registry.Register", "agent %q is already registered", id)
	}
	a := domainagent.New(id, name, role, skills)
	r.agents[id] = &agentEntry{agent: a}
	return a, nil
}

func (r *Registry) Get(id string) (domainagent.Agent, bool) {
	r.mu.RLock()
	e, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return domainagent.Agent{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agent, true
}

func (r *Registry) List() []domainagent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainagent.Agent, 0, len(r.agents))
	for _, e := range r.agents {
		e.mu.Lock()
		out = append(out, e.agent)
		e.mu.Unlock()
	}
	return out
}

// SetCurrentTask records the agent's in-flight task, or clears it when
// taskID is empty, and bumps LastSeenAt.
func (r *Registry) SetCurrentTask(id, taskID string) {
	r.mu.RLock()
	e, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.agent.CurrentTask = taskID
	e.agent.LastSeenAt = time.Now().UTC()
	e.mu.Unlock()
}

// IncrementCompleted bumps the agent's completed-task counter, called by the
// ProgressTracker on a successful completion report.
func (r *Registry) IncrementCompleted(id string) {
	r.mu.RLock()
	e, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.agent.CompletedCount++
	e.mu.Unlock()
}

func (r *Registry) Touch(id string) {
	r.mu.RLock()
	e, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.agent.LastSeenAt = time.Now().UTC()
	e.mu.Unlock()
}

// WithAgentLock serializes concurrent tool calls for a single agent_id (§5:
// "for any single agent_id only one tool call is in flight at a time").
func (r *Registry) WithAgentLock(id string, fn func() error) error {
	r.mu.RLock()
	e, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return fn()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Remove evicts a stale agent (beyond the staleness window, §3).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.agents, id)
	r.mu.Unlock()
}
