// Package progress implements the ProgressTracker (C11, §4.11):
// report_task_progress and report_blocker, the two operations that drive
// board state from worker-reported updates. Grounded on the teacher's
// service/review, which similarly validated a claim against an ownership
// record before mutating shared state.
package progress

import (
	"context"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	portledger "github.com/coordinator/agent-board/internal/port/ledger"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// CompletionNotifier is notified when a task completes, so the registry can
// bump the agent's completed_count without this package depending on it directly.
type CompletionNotifier interface {
	IncrementCompleted(agentID string)
	SetCurrentTask(agentID, taskID string)
}

type Tracker struct {
	ledger   portledger.Ledger
	board    portboard.Client
	ai       portai.Client
	registry CompletionNotifier
}

func New(ledger portledger.Ledger, board portboard.Client, ai portai.Client, registry CompletionNotifier) *Tracker {
	return &Tracker{ledger: ledger, board: board, ai: ai, registry: registry}
}

// ReportProgress implements §4.11's report_task_progress. Idempotent for
// repeated `completed` reports on the same (agent, task) pair.
func (tr *Tracker) ReportProgress(ctx context.Context, agentID, taskID string, status Status, progress int, message string) error {
	assignment, ok, err := tr.ledger.GetByAgent(ctx, agentID)
	if err != nil {
		return err
	}
	if !ok || assignment.TaskID != taskID {
		// Idempotence: a duplicate `completed` report lands here once the first
		// report has already removed the ledger entry — that is not an error.
		if status == StatusCompleted {
			return nil
		}
		return apperr.New(apperr.KindNoSuchAssignment, "progress.ReportProgress", nil)
	}

	switch status {
	case StatusInProgress:
		if message != "" {
			return tr.board.AddComment(ctx, taskID, message)
		}
		return nil

	case StatusCompleted:
		if err := tr.ledger.Remove(ctx, agentID); err != nil {
			return err
		}
		done := domaintask.StatusDone
		empty := ""
		if err := tr.board.UpdateTask(ctx, taskID, portboard.Patch{Status: &done, Assignee: &empty}); err != nil {
			return err
		}
		tr.registry.SetCurrentTask(agentID, "")
		tr.registry.IncrementCompleted(agentID)
		return nil

	case StatusBlocked:
		if err := tr.ledger.Remove(ctx, agentID); err != nil {
			return err
		}
		blocked := domaintask.StatusBlocked
		if err := tr.board.UpdateTask(ctx, taskID, portboard.Patch{Status: &blocked}); err != nil {
			return err
		}
		tr.registry.SetCurrentTask(agentID, "")
		return nil

	default:
		return apperr.Newf(apperr.KindInvalidStatus, "progress.ReportProgress", "unrecognized status %q", status)
	}
}

// ReportBlocker implements §4.11's report_blocker: marks the task blocked,
// asks the AIClient for a resolution suggestion, and releases the lease so
// the agent must request_next_task again to resume (§9 open question:
// reporting on a task the agent no longer owns is always NoSuchAssignment).
func (tr *Tracker) ReportBlocker(ctx context.Context, agentID, taskID, description string, severity Severity) (portai.BlockerResolution, error) {
	assignment, ok, err := tr.ledger.GetByAgent(ctx, agentID)
	if err != nil {
		return portai.BlockerResolution{}, err
	}
	if !ok || assignment.TaskID != taskID {
		return portai.BlockerResolution{}, apperr.New(apperr.KindNoSuchAssignment, "progress.ReportBlocker", nil)
	}

	if err := tr.board.AddComment(ctx, taskID, description); err != nil {
		return portai.BlockerResolution{}, err
	}
	blocked := domaintask.StatusBlocked
	if err := tr.board.UpdateTask(ctx, taskID, portboard.Patch{Status: &blocked}); err != nil {
		return portai.BlockerResolution{}, err
	}

	tasks, err := tr.board.ListTasks(ctx)
	if err != nil {
		return portai.BlockerResolution{}, err
	}
	task := findTask(tasks, taskID)

	resolution, err := tr.ai.SuggestBlockerResolution(ctx, task, description, string(severity))
	if err != nil {
		resolution = portai.BlockerResolution{
			Suggestion:      fallbackSuggestion(severity),
			EstimatedImpact: "unknown",
		}
	}

	if err := tr.ledger.Remove(ctx, agentID); err != nil {
		return portai.BlockerResolution{}, err
	}
	tr.registry.SetCurrentTask(agentID, "")

	return resolution, nil
}

func findTask(tasks []domaintask.Task, id string) domaintask.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return domaintask.Task{ID: id}
}

func fallbackSuggestion(severity Severity) string {
	switch severity {
	case SeverityHigh:
		return "Escalate to a human reviewer; this blocker needs direct attention before work can resume."
	case SeverityMedium:
		return "Try narrowing the blocker to a minimal reproduction and re-request the task once resolved."
	default:
		return "Note the blocker on the task and continue with other available work."
	}
}
