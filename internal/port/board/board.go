// Package board defines the abstract BoardClient (C1, §4.1): the only
// surface through which the coordinator touches an external kanban provider.
// Concrete providers live under internal/adapter/board/*.
package board

import (
	"context"

	domaintask "github.com/coordinator/agent-board/internal/domain/task"
)

// CreateSpec carries everything needed to create a task; the provider assigns
// the final ID.
type CreateSpec struct {
	Title          string
	Description    string
	Labels         []string
	Priority       domaintask.Priority
	EstimatedHours float64
	Dependencies   []string // board-assigned ids of prerequisite tasks
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Status   *domaintask.Status
	Assignee *string // empty string clears the assignee
	Labels   []string
}

// Client is the capability set of §4.1, consumed by every component that
// needs to read or mutate board state. Every method fails with an
// *apperr.Error carrying KindTransient, KindPermanent, or KindNotFound.
type Client interface {
	ListTasks(ctx context.Context) ([]domaintask.Task, error)
	CreateTask(ctx context.Context, spec CreateSpec) (domaintask.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch Patch) error
	AddComment(ctx context.Context, taskID, text string) error
	MoveTask(ctx context.Context, taskID, column string) error
}
