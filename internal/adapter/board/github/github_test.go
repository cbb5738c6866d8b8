package github

import (
	"net/http"
	"testing"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
)

func TestFromIssue_OpenUnassigned(t *testing.T) {
	issue := &github.Issue{
		Number: github.Int(42),
		Title:  github.String("wire the checkout flow"),
		Body:   github.String("add stripe integration"),
		State:  github.String("open"),
		Labels: []*github.Label{
			{Name: github.String("priority:high")},
			{Name: github.String("phase:implementation")},
		},
	}

	task := fromIssue(issue)
	assert.Equal(t, "42", task.ID)
	assert.Equal(t, domaintask.StatusTodo, task.Status)
	assert.Equal(t, domaintask.PriorityHigh, task.Priority)
	assert.Equal(t, domaintask.PhaseImplementation, task.Phase)
	assert.Empty(t, task.Assignee)
}

func TestFromIssue_AssignedIssuePromotesToInProgress(t *testing.T) {
	issue := &github.Issue{
		Number:    github.Int(7),
		Title:     github.String("fix flaky test"),
		State:     github.String("open"),
		Assignees: []*github.User{{Login: github.String("agent-1")}},
	}

	task := fromIssue(issue)
	assert.Equal(t, "agent-1", task.Assignee)
	assert.Equal(t, domaintask.StatusInProgress, task.Status)
}

func TestFromIssue_ClosedIsDone(t *testing.T) {
	issue := &github.Issue{
		Number: github.Int(3),
		Title:  github.String("done task"),
		State:  github.String("closed"),
	}

	task := fromIssue(issue)
	assert.Equal(t, domaintask.StatusDone, task.Status)
}

func TestBodyWithMeta_AppendsDependencies(t *testing.T) {
	spec := portboard.CreateSpec{
		Description:  "some task",
		Dependencies: []string{"1", "2"},
	}
	body := bodyWithMeta(spec)
	assert.Contains(t, body, "some task")
	assert.Contains(t, body, "depends-on: 1,2")
}

func TestBodyWithMeta_NoDependenciesLeavesBodyUnchanged(t *testing.T) {
	spec := portboard.CreateSpec{Description: "some task"}
	assert.Equal(t, "some task", bodyWithMeta(spec))
}

func TestIssueNumber_Valid(t *testing.T) {
	n, err := issueNumber("123")
	require.NoError(t, err)
	assert.Equal(t, 123, n)
}

func TestIssueNumber_Invalid(t *testing.T) {
	_, err := issueNumber("not-a-number")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermanent, apperr.KindOf(err))
}

func TestWrapErr_NotFoundResponse(t *testing.T) {
	ghErr := &github.ErrorResponse{Response: &http.Response{StatusCode: 404}}
	err := wrapErr("get task", ghErr)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestWrapErr_ServerErrorIsTransient(t *testing.T) {
	ghErr := &github.ErrorResponse{Response: &http.Response{StatusCode: 502}}
	err := wrapErr("list tasks", ghErr)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestWrapErr_UnrecognizedErrorIsPermanent(t *testing.T) {
	err := wrapErr("create task", assert.AnError)
	assert.Equal(t, apperr.KindPermanent, apperr.KindOf(err))
}
