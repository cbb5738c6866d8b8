// Package memory implements port/board.Client in process memory. It backs
// every unit test in this repo and serves as the default board when no
// provider is configured, grounded on the teacher's adapter/memory cache
// (mutex-guarded map, no external durability).
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
)

type Board struct {
	mu    sync.RWMutex
	tasks map[string]domaintask.Task
}

func New() *Board {
	return &Board{tasks: make(map[string]domaintask.Task)}
}

var _ portboard.Client = (*Board)(nil)

func (b *Board) ListTasks(_ context.Context) ([]domaintask.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domaintask.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (b *Board) CreateTask(_ context.Context, spec portboard.CreateSpec) (domaintask.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := domaintask.Task{
		ID:             uuid.NewString(),
		Title:          spec.Title,
		Description:    spec.Description,
		Status:         domaintask.StatusTodo,
		Labels:         append([]string(nil), spec.Labels...),
		Priority:       spec.Priority,
		EstimatedHours: spec.EstimatedHours,
		Dependencies:   append([]string(nil), spec.Dependencies...),
	}
	t.Phase = phaseFromLabels(t)
	b.tasks[t.ID] = t
	return t, nil
}

func (b *Board) UpdateTask(_ context.Context, taskID string, patch portboard.Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[taskID]
	if !ok {
		return errNotFound
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Assignee != nil {
		t.Assignee = *patch.Assignee
	}
	if patch.Labels != nil {
		t.Labels = append([]string(nil), patch.Labels...)
		t.Phase = phaseFromLabels(t)
	}
	b.tasks[taskID] = t
	return nil
}

func (b *Board) AddComment(_ context.Context, taskID, _ string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.tasks[taskID]; !ok {
		return errNotFound
	}
	return nil
}

// MoveTask is a best-effort status transition for providers without columns (§4.1).
func (b *Board) MoveTask(ctx context.Context, taskID, column string) error {
	status := domaintask.Status(column)
	return b.UpdateTask(ctx, taskID, portboard.Patch{Status: &status})
}

func phaseFromLabels(t domaintask.Task) domaintask.Phase {
	for _, l := range t.Labels {
		for _, p := range domaintask.PhaseOrder {
			if l == domaintask.NamespacePhase+string(p) {
				return p
			}
		}
	}
	return ""
}

type boardError string

func (e boardError) Error() string { return string(e) }

var errNotFound = apperr.New(apperr.KindNotFound, "board.memory", boardError("board: task not found"))
