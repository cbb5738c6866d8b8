// Package postgres implements port/ledger.Ledger as a durable table, grounded
// on the teacher's postgres adapters (same pgx.Pool, same error-wrapping style).
// Schema (internal/adapter/postgres/migrations/001_assignments.sql):
//
//	CREATE TABLE assignments (
//	    agent_id   TEXT PRIMARY KEY,
//	    task_id    TEXT UNIQUE NOT NULL,
//	    assigned_at TIMESTAMPTZ NOT NULL,
//	    lease_id   BIGINT NOT NULL
//	);
//
// plus an index on task_id and the assignments_lease_id_seq sequence behind
// NextLeaseID. No snapshot of the agent is stored with an assignment.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainassignment "github.com/coordinator/agent-board/internal/domain/assignment"
)

type Ledger struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Insert relies on the table's PK/UNIQUE constraints to make the "at most one
// live assignment per agent, at most one per task" invariant atomic: a
// concurrent insert for the same task_id fails the UNIQUE constraint, and the
// assignment engine answers the losing agent with no task (§5 ordering
// guarantees).
func (l *Ledger) Insert(ctx context.Context, a domainassignment.Assignment) error {
	query := `
		INSERT INTO assignments (agent_id, task_id, assigned_at, lease_id)
		VALUES ($1, $2, $3, $4)`
	_, err := l.pool.Exec(ctx, query, a.AgentID, a.TaskID, a.AssignedAt, a.LeaseID)
	if err != nil {
		return fmt.Errorf("inserting assignment: %w", err)
	}
	return nil
}

func (l *Ledger) Remove(ctx context.Context, agentID string) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM assignments WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("removing assignment: %w", err)
	}
	return nil
}

func (l *Ledger) GetByAgent(ctx context.Context, agentID string) (domainassignment.Assignment, bool, error) {
	return l.scanOne(ctx, `SELECT agent_id, task_id, assigned_at, lease_id FROM assignments WHERE agent_id = $1`, agentID)
}

func (l *Ledger) GetByTask(ctx context.Context, taskID string) (domainassignment.Assignment, bool, error) {
	return l.scanOne(ctx, `SELECT agent_id, task_id, assigned_at, lease_id FROM assignments WHERE task_id = $1`, taskID)
}

func (l *Ledger) scanOne(ctx context.Context, query string, arg string) (domainassignment.Assignment, bool, error) {
	var a domainassignment.Assignment
	err := l.pool.QueryRow(ctx, query, arg).Scan(&a.AgentID, &a.TaskID, &a.AssignedAt, &a.LeaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainassignment.Assignment{}, false, nil
		}
		return domainassignment.Assignment{}, false, fmt.Errorf("querying assignment: %w", err)
	}
	return a, true, nil
}

// NextLeaseID draws from a dedicated sequence so concurrent callers never
// observe the same value, giving lease ids the same total ordering the
// ledger table itself enforces for assignments.
func (l *Ledger) NextLeaseID(ctx context.Context) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx, `SELECT nextval('assignments_lease_id_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocating lease id: %w", err)
	}
	return id, nil
}

func (l *Ledger) All(ctx context.Context) ([]domainassignment.Assignment, error) {
	rows, err := l.pool.Query(ctx, `SELECT agent_id, task_id, assigned_at, lease_id FROM assignments`)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []domainassignment.Assignment
	for rows.Next() {
		var a domainassignment.Assignment
		if err := rows.Scan(&a.AgentID, &a.TaskID, &a.AssignedAt, &a.LeaseID); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ExpireOlderThan loads every assignment and evaluates ttlFor in Go rather than
// in SQL, since the TTL depends on the task's estimated_hours which lives on
// the board, not in this table.
func (l *Ledger) ExpireOlderThan(ctx context.Context, now time.Time, ttlFor func(taskID string) time.Duration) ([]domainassignment.Assignment, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}

	var expired []domainassignment.Assignment
	for _, a := range all {
		if a.IsExpired(ttlFor(a.TaskID), now) {
			if err := l.Remove(ctx, a.AgentID); err != nil {
				return expired, err
			}
			expired = append(expired, a)
		}
	}
	return expired, nil
}
