package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordinator/agent-board/internal/adapter/board/memory"
	ledgermem "github.com/coordinator/agent-board/internal/adapter/ledger/memory"
	domainassignment "github.com/coordinator/agent-board/internal/domain/assignment"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
)

type fakeRegistry struct{ cleared map[string]bool }

func (f *fakeRegistry) SetCurrentTask(agentID, _ string) { f.cleared[agentID] = true }

// failingUpdateBoard wraps a real board but fails every UpdateTask call, to
// exercise the sweeper's revert-failure path.
type failingUpdateBoard struct {
	*memory.Board
}

func (b *failingUpdateBoard) UpdateTask(context.Context, string, portboard.Patch) error {
	return errors.New("board unavailable")
}

func TestSweepOnce_RevertsExpiredLease(t *testing.T) {
	ctx := context.Background()
	board := memory.New()
	task, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Long task", EstimatedHours: 1})
	require.NoError(t, err)

	assignee := "a1"
	status := domaintask.StatusInProgress
	require.NoError(t, board.UpdateTask(ctx, task.ID, portboard.Patch{Status: &status, Assignee: &assignee}))

	ledger := ledgermem.New()
	staleAssignedAt := time.Now().Add(-10 * time.Hour)
	require.NoError(t, ledger.Insert(ctx, domainassignment.Assignment{AgentID: "a1", TaskID: task.ID, AssignedAt: staleAssignedAt, LeaseID: 1}))

	reg := &fakeRegistry{cleared: make(map[string]bool)}
	sw := New(ledger, board, reg, time.Minute, time.Hour, 24*time.Hour, nil)

	require.NoError(t, sw.SweepOnce(ctx))

	_, ok, err := ledger.GetByAgent(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, ok)

	tasks, err := board.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusTodo, tasks[0].Status)
	assert.Empty(t, tasks[0].Assignee)
	assert.True(t, reg.cleared["a1"])
}

func TestSweepOnce_LeavesFreshLeaseAlone(t *testing.T) {
	ctx := context.Background()
	board := memory.New()
	task, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Fresh task", EstimatedHours: 4})
	require.NoError(t, err)

	ledger := ledgermem.New()
	require.NoError(t, ledger.Insert(ctx, domainassignment.Assignment{AgentID: "a1", TaskID: task.ID, AssignedAt: time.Now(), LeaseID: 1}))

	reg := &fakeRegistry{cleared: make(map[string]bool)}
	sw := New(ledger, board, reg, time.Minute, time.Hour, 24*time.Hour, nil)

	require.NoError(t, sw.SweepOnce(ctx))

	_, ok, err := ledger.GetByAgent(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSweepOnce_ReinsertsLeaseWhenBoardRevertFails(t *testing.T) {
	ctx := context.Background()
	board := memory.New()
	task, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Long task", EstimatedHours: 1})
	require.NoError(t, err)

	assignee := "a1"
	status := domaintask.StatusInProgress
	require.NoError(t, board.UpdateTask(ctx, task.ID, portboard.Patch{Status: &status, Assignee: &assignee}))

	ledger := ledgermem.New()
	staleAssignedAt := time.Now().Add(-10 * time.Hour)
	require.NoError(t, ledger.Insert(ctx, domainassignment.Assignment{AgentID: "a1", TaskID: task.ID, AssignedAt: staleAssignedAt, LeaseID: 1}))

	reg := &fakeRegistry{cleared: make(map[string]bool)}
	sw := New(ledger, &failingUpdateBoard{Board: board}, reg, time.Minute, time.Hour, 24*time.Hour, nil)

	require.NoError(t, sw.SweepOnce(ctx))

	a, ok, err := ledger.GetByAgent(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok, "ledger entry should be re-inserted when the board revert fails")
	assert.Equal(t, task.ID, a.TaskID)
	assert.False(t, reg.cleared["a1"], "registry should not be cleared when the revert failed")
}

func TestRecoverOnStart_DropsEntriesNotReflectedOnBoard(t *testing.T) {
	ctx := context.Background()
	board := memory.New()
	task, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Orphaned task"})
	require.NoError(t, err)

	ledger := ledgermem.New()
	require.NoError(t, ledger.Insert(ctx, domainassignment.Assignment{AgentID: "a1", TaskID: task.ID, AssignedAt: time.Now(), LeaseID: 1}))

	require.NoError(t, RecoverOnStart(ctx, ledger, board))

	_, ok, err := ledger.GetByAgent(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, ok, "task is still todo on the board, not in_progress under this agent")
}

func TestRecoverOnStart_KeepsConsistentEntries(t *testing.T) {
	ctx := context.Background()
	board := memory.New()
	task, err := board.CreateTask(ctx, portboard.CreateSpec{Title: "Owned task"})
	require.NoError(t, err)

	assignee := "a1"
	status := domaintask.StatusInProgress
	require.NoError(t, board.UpdateTask(ctx, task.ID, portboard.Patch{Status: &status, Assignee: &assignee}))

	ledger := ledgermem.New()
	require.NoError(t, ledger.Insert(ctx, domainassignment.Assignment{AgentID: "a1", TaskID: task.ID, AssignedAt: time.Now(), LeaseID: 1}))

	require.NoError(t, RecoverOnStart(ctx, ledger, board))

	_, ok, err := ledger.GetByAgent(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
}
