// Package sweeper runs the background lease-expiry pass described in §4.10
// and §5: periodically finds assignments whose lease has exceeded its TTL,
// reverts the task on the board, and frees the ledger entry. Grounded on the
// teacher's wire/reaper.go, which ran an identical poll-expire-notify loop
// over a different resource.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	domainassignment "github.com/coordinator/agent-board/internal/domain/assignment"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	portledger "github.com/coordinator/agent-board/internal/port/ledger"
)

// RegistryNotifier is the subset of the agent registry the sweeper touches
// on expiry — it never needs to read agent state, only clear it.
type RegistryNotifier interface {
	SetCurrentTask(agentID, taskID string)
}

type Sweeper struct {
	ledger     portledger.Ledger
	board      portboard.Client
	registry   RegistryNotifier
	interval   time.Duration
	leaseFloor time.Duration
	leaseCeiling time.Duration
	log        *slog.Logger
}

func New(ledger portledger.Ledger, board portboard.Client, registry RegistryNotifier, interval, leaseFloor, leaseCeiling time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{ledger: ledger, board: board, registry: registry, interval: interval, leaseFloor: leaseFloor, leaseCeiling: leaseCeiling, log: log}
}

// Run blocks, sweeping on every tick until ctx is cancelled. Intended to run
// in its own goroutine from the composition root.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.log.Error("sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce runs a single sweep pass. Run calls it on every tick; it is
// exported for direct invocation in tests. Crash recovery is RecoverOnStart.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	tasksByID, err := s.boardTasksByID(ctx)
	if err != nil {
		return err
	}

	expired, err := s.ledger.ExpireOlderThan(ctx, time.Now().UTC(), s.ttlFor(tasksByID))
	if err != nil {
		return err
	}

	for _, a := range expired {
		s.revert(ctx, a, tasksByID[a.TaskID])
	}
	return nil
}

func (s *Sweeper) boardTasksByID(ctx context.Context) (map[string]domaintask.Task, error) {
	tasks, err := s.board.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domaintask.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out, nil
}

func (s *Sweeper) ttlFor(tasksByID map[string]domaintask.Task) func(taskID string) time.Duration {
	return func(taskID string) time.Duration {
		t, ok := tasksByID[taskID]
		if !ok {
			return s.leaseFloor
		}
		return domainassignment.LeaseTTL(t.EstimatedHours, s.leaseFloor, s.leaseCeiling)
	}
}

// revert is called after ExpireOlderThan has already dropped a's ledger
// entry. If the board update fails, the lease is re-inserted so the ledger
// and board don't disagree until the next sweep (or RecoverOnStart) retries.
func (s *Sweeper) revert(ctx context.Context, a domainassignment.Assignment, _ domaintask.Task) {
	todo := domaintask.StatusTodo
	empty := ""
	if err := s.board.UpdateTask(ctx, a.TaskID, portboard.Patch{Status: &todo, Assignee: &empty}); err != nil {
		s.log.Error("failed to revert expired lease", "task_id", a.TaskID, "agent_id", a.AgentID, "error", err)
		if reinsertErr := s.ledger.Insert(ctx, a); reinsertErr != nil {
			s.log.Error("failed to re-insert ledger entry after failed revert", "task_id", a.TaskID, "agent_id", a.AgentID, "error", reinsertErr)
		}
		return
	}
	if err := s.board.AddComment(ctx, a.TaskID, "Lease expired for agent "+a.AgentID+"; task returned to todo."); err != nil {
		s.log.Warn("failed to comment on expired lease", "task_id", a.TaskID, "error", err)
	}
	s.registry.SetCurrentTask(a.AgentID, "")
	s.log.Info("swept expired lease", "task_id", a.TaskID, "agent_id", a.AgentID)
}

// RecoverOnStart cross-checks every surviving ledger entry against the board
// on process start (§4.10 crash recovery), before the ToolSurface accepts
// connections. Entries whose board task is no longer in_progress, or is
// assigned to someone else, are dropped; surviving entries are left intact.
func RecoverOnStart(ctx context.Context, ledger portledger.Ledger, board portboard.Client) error {
	all, err := ledger.All(ctx)
	if err != nil {
		return err
	}
	tasks, err := board.ListTasks(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]domaintask.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	for _, a := range all {
		t, ok := byID[a.TaskID]
		if !ok || t.Status != domaintask.StatusInProgress || t.Assignee != a.AgentID {
			if err := ledger.Remove(ctx, a.AgentID); err != nil {
				return err
			}
		}
	}
	return nil
}
