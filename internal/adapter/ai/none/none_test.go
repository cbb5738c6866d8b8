package none

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
)

func TestClient_AllOperationsReturnErrUnavailable(t *testing.T) {
	c := New()
	ctx := context.Background()
	task := domaintask.Task{ID: "1", Title: "do the thing"}

	_, err := c.ParsePRD(ctx, "build a thing", portai.ParseOptions{})
	assert.ErrorIs(t, err, portai.ErrUnavailable)

	_, err = c.SynthesizeTasks(ctx, portai.PRDResult{})
	assert.ErrorIs(t, err, portai.ErrUnavailable)

	_, err = c.ScoreTaskForAgent(ctx, task, nil, portai.AgentContext{})
	assert.ErrorIs(t, err, portai.ErrUnavailable)

	_, err = c.SuggestBlockerResolution(ctx, task, "stuck", "high")
	assert.ErrorIs(t, err, portai.ErrUnavailable)
}
