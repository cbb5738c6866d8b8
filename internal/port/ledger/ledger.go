// Package ledger defines the durable AssignmentLedger (C10, §4.10): the
// single source of truth for which agent holds which task right now.
package ledger

import (
	"context"
	"time"

	domainassignment "github.com/coordinator/agent-board/internal/domain/assignment"
)

// Ledger is keyed by agent_id and secondarily indexed by task_id (§4.10).
// Implementations must make Insert atomic with respect to concurrent callers:
// two callers racing to insert for the same task_id must not both succeed.
type Ledger interface {
	Insert(ctx context.Context, a domainassignment.Assignment) error
	Remove(ctx context.Context, agentID string) error
	GetByAgent(ctx context.Context, agentID string) (domainassignment.Assignment, bool, error)
	GetByTask(ctx context.Context, taskID string) (domainassignment.Assignment, bool, error)
	// ExpireOlderThan returns every assignment whose lease exceeds its own TTL and
	// removes them from the ledger. ttlFor resolves a task's stale-lease TTL.
	ExpireOlderThan(ctx context.Context, now time.Time, ttlFor func(taskID string) time.Duration) ([]domainassignment.Assignment, error)
	// All returns every live assignment — used for crash-recovery cross-checks.
	All(ctx context.Context) ([]domainassignment.Assignment, error)
	// NextLeaseID allocates a fresh monotonic lease id. Implementations must make
	// this safe for concurrent callers (§5: ledger commits are totally ordered).
	NextLeaseID(ctx context.Context) (int64, error)
}
