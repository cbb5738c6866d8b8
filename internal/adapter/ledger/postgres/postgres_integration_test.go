//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgledger "github.com/coordinator/agent-board/internal/adapter/ledger/postgres"
	domainassignment "github.com/coordinator/agent-board/internal/domain/assignment"
	"github.com/coordinator/agent-board/internal/testutil"
)

func TestLedger_InsertAndLookup(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ledger := pgledger.New(pool)
	ctx := context.Background()

	a := domainassignment.Assignment{
		AgentID:    "agent-" + t.Name(),
		TaskID:     "task-" + t.Name(),
		AssignedAt: time.Now().UTC().Truncate(time.Second),
		LeaseID:    1,
	}
	require.NoError(t, ledger.Insert(ctx, a))
	t.Cleanup(func() { _ = ledger.Remove(ctx, a.AgentID) })

	byAgent, ok, err := ledger.GetByAgent(ctx, a.AgentID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.TaskID, byAgent.TaskID)

	byTask, ok, err := ledger.GetByTask(ctx, a.TaskID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.AgentID, byTask.AgentID)
}

func TestLedger_InsertRejectsDuplicateTask(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ledger := pgledger.New(pool)
	ctx := context.Background()

	taskID := "task-dup-" + t.Name()
	first := domainassignment.Assignment{AgentID: "agent-a-" + t.Name(), TaskID: taskID, AssignedAt: time.Now().UTC()}
	second := domainassignment.Assignment{AgentID: "agent-b-" + t.Name(), TaskID: taskID, AssignedAt: time.Now().UTC()}

	require.NoError(t, ledger.Insert(ctx, first))
	t.Cleanup(func() { _ = ledger.Remove(ctx, first.AgentID) })

	assert.Error(t, ledger.Insert(ctx, second))
}

func TestLedger_Remove(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ledger := pgledger.New(pool)
	ctx := context.Background()

	a := domainassignment.Assignment{AgentID: "agent-rm-" + t.Name(), TaskID: "task-rm-" + t.Name(), AssignedAt: time.Now().UTC()}
	require.NoError(t, ledger.Insert(ctx, a))

	require.NoError(t, ledger.Remove(ctx, a.AgentID))

	_, ok, err := ledger.GetByAgent(ctx, a.AgentID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_ExpireOlderThan(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ledger := pgledger.New(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := domainassignment.Assignment{AgentID: "agent-stale-" + t.Name(), TaskID: "task-stale-" + t.Name(), AssignedAt: now.Add(-2 * time.Hour)}
	require.NoError(t, ledger.Insert(ctx, stale))
	t.Cleanup(func() { _ = ledger.Remove(ctx, stale.AgentID) })

	expired, err := ledger.ExpireOlderThan(ctx, now, func(string) time.Duration { return time.Hour })
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.AgentID, expired[0].AgentID)

	_, ok, err := ledger.GetByAgent(ctx, stale.AgentID)
	require.NoError(t, err)
	assert.False(t, ok)
}
