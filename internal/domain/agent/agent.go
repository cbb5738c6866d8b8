// Package agent models a connected worker agent. Agents live only in process
// memory plus the assignment ledger; they are not persisted beyond what crash
// recovery needs.
package agent

import "time"

type Agent struct {
	ID             string
	Name           string
	Role           string
	Skills         []string
	CurrentTask    string // task_id, empty if idle
	CompletedCount int
	RegisteredAt   time.Time
	LastSeenAt     time.Time
}

func New(id, name, role string, skills []string) Agent {
	now := time.Now().UTC()
	return Agent{
		ID:           id,
		Name:         name,
		Role:         role,
		Skills:       append([]string(nil), skills...),
		RegisteredAt: now,
		LastSeenAt:   now,
	}
}

// HasSkill reports whether the agent lists the exact skill.
func (a Agent) HasSkill(skill string) bool {
	for _, s := range a.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// MatchCount returns how many of the required skills the agent possesses.
func (a Agent) MatchCount(required []string) int {
	n := 0
	for _, r := range required {
		if a.HasSkill(r) {
			n++
		}
	}
	return n
}

// IsStale reports whether the agent has not been seen within the staleness window.
func (a Agent) IsStale(window time.Duration) bool {
	return time.Since(a.LastSeenAt) > window
}
