// Package none is the null AIClient: every operation returns ai.ErrUnavailable
// immediately. It backs a coordinator run with no configured LLM backend,
// forcing every caller onto its deterministic fallback path (§4.2, §4.5).
package none

import (
	"context"

	portai "github.com/coordinator/agent-board/internal/port/ai"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
)

type Client struct{}

var _ portai.Client = Client{}

func New() Client { return Client{} }

func (Client) ParsePRD(context.Context, string, portai.ParseOptions) (portai.PRDResult, error) {
	return portai.PRDResult{}, portai.ErrUnavailable
}

func (Client) SynthesizeTasks(context.Context, portai.PRDResult) (portai.TaskPlan, error) {
	return portai.TaskPlan{}, portai.ErrUnavailable
}

func (Client) ScoreTaskForAgent(context.Context, domaintask.Task, []string, portai.AgentContext) (portai.ScoreResult, error) {
	return portai.ScoreResult{}, portai.ErrUnavailable
}

func (Client) SuggestBlockerResolution(context.Context, domaintask.Task, string, string) (portai.BlockerResolution, error) {
	return portai.BlockerResolution{}, portai.ErrUnavailable
}
