// Package ai defines the abstract AIClient (C2, §4.2): a typed
// request/response channel to the LLM backend. The core never parses
// free-form strings from a model — every operation returns a typed result.
package ai

import (
	"context"
	"errors"

	domaintask "github.com/coordinator/agent-board/internal/domain/task"
)

// ErrUnavailable is returned by any operation when the backend cannot serve
// the request. Callers fall back to deterministic rule-based paths (§4.2) —
// this is not an *apperr.Error because it is an expected, handled outcome,
// not a failure to propagate.
var ErrUnavailable = errors.New("ai: backend unavailable")

// ParseOptions carries the tech-stack and complexity options of project
// synthesis (§4.6); the other synthesis options are not passed to parse_prd.
type ParseOptions struct {
	TechStack  []string
	Complexity string // mvp | standard | enterprise
}

// PRDResult is the structured output of parse_prd.
type PRDResult struct {
	Features    []string
	TechStack   []string
	Constraints []string
	Confidence  float64
}

// PlannedTask is one task in a TaskPlan, prior to board publication.
type PlannedTask struct {
	TempID         string // synthesizer-local id, remapped to board ids on publish
	Title          string
	Description    string
	Labels         []string
	Priority       domaintask.Priority
	EstimatedHours float64
	Phase          domaintask.Phase
	DependsOn      []string // TempIDs
}

// TaskPlan is the structured output of synthesize_tasks.
type TaskPlan struct {
	Tasks         []PlannedTask
	Phases        []string
	EstimatedDays int
}

// ScoreResult is the structured output of score_task_for_agent.
type ScoreResult struct {
	Score     float64 // [0,1]
	Rationale string
}

// BlockerResolution is the structured output of suggest_blocker_resolution.
type BlockerResolution struct {
	Suggestion      string
	EstimatedImpact string
}

// AgentContext is the scoring context passed to score_task_for_agent: the
// candidate's current board state, summarized so the model need not be
// handed the full snapshot.
type AgentContext struct {
	TodoCount    int
	InProgress   int
	ProjectPhase string
}

// Client is the four-operation surface of §4.2.
type Client interface {
	ParsePRD(ctx context.Context, text string, opts ParseOptions) (PRDResult, error)
	SynthesizeTasks(ctx context.Context, prd PRDResult) (TaskPlan, error)
	ScoreTaskForAgent(ctx context.Context, t domaintask.Task, agentSkills []string, agentCtx AgentContext) (ScoreResult, error)
	SuggestBlockerResolution(ctx context.Context, t domaintask.Task, description string, severity string) (BlockerResolution, error)
}
