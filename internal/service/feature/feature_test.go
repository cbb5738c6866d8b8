package feature

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordinator/agent-board/internal/adapter/ai/none"
	"github.com/coordinator/agent-board/internal/adapter/board/memory"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
)

func seedBoard(t *testing.T, board *memory.Board) {
	t.Helper()
	ctx := context.Background()
	_, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Implement user profile avatars", Description: "Adds avatar image field to the profile.", Labels: []string{"component:profile"}, Priority: domaintask.PriorityMedium})
	require.NoError(t, err)
	_, err = board.CreateTask(ctx, portboard.CreateSpec{Title: "Implement upload service", Description: "Generic file upload backend.", Labels: []string{"component:storage"}, Priority: domaintask.PriorityMedium})
	require.NoError(t, err)
}

func TestAddFeature_AutoDetectLinksToOverlappingTask(t *testing.T) {
	board := memory.New()
	seedBoard(t, board)

	ins := New(none.New(), board)
	result, err := ins.AddFeature(context.Background(), "Add user avatar uploads", IntegrationAutoDetect)
	require.NoError(t, err)

	assert.Greater(t, result.TasksCreated, 0)

	tasks, err := board.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2+result.TasksCreated, len(tasks))
	for _, tk := range tasks {
		if tk.Title == "Implement: Add user avatar uploads" {
			assert.NotEmpty(t, tk.Dependencies)
		}
	}
}

func TestAddFeature_ParallelAddsNoExtraDependencies(t *testing.T) {
	board := memory.New()
	seedBoard(t, board)

	ins := New(none.New(), board)
	_, err := ins.AddFeature(context.Background(), "Add dark mode toggle", IntegrationParallel)
	require.NoError(t, err)

	tasks, err := board.ListTasks(context.Background())
	require.NoError(t, err)
	for _, tk := range tasks {
		if tk.Title == "Design: Add dark mode toggle" {
			assert.Empty(t, tk.Dependencies)
		}
	}
}

func TestAddFeature_NewPhaseLinksToLastTerminalPhaseTask(t *testing.T) {
	board := memory.New()
	ctx := context.Background()
	_, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Deploy initial release", Labels: []string{string(domaintask.NamespacePhase) + string(domaintask.PhaseDeployment)}})
	require.NoError(t, err)

	ins := New(none.New(), board)
	result, err := ins.AddFeature(ctx, "Add billing integration", IntegrationNewPhase)
	require.NoError(t, err)
	assert.Greater(t, result.TasksCreated, 0)
}
