// Package github implements port/board.Client against GitHub Issues: issue
// labels carry priority/skill/phase/component namespaces (§4.3), and the
// issue body carries the free-form description. Grounded on the teacher's
// adapter/github client (oauth2 static token source, google/go-github),
// retargeted from pull-request operations to issue-based task CRUD.
package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
)

type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

var _ portboard.Client = (*Client)(nil)

func NewClient(token, owner, repo string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &Client{gh: github.NewClient(httpClient), owner: owner, repo: repo}
}

func (c *Client) ListTasks(ctx context.Context) ([]domaintask.Task, error) {
	var all []*github.Issue
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, wrapErr("list tasks", err)
		}
		all = append(all, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	out := make([]domaintask.Task, 0, len(all))
	for _, issue := range all {
		if issue.IsPullRequest() {
			continue
		}
		out = append(out, fromIssue(issue))
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, spec portboard.CreateSpec) (domaintask.Task, error) {
	labels := append([]string(nil), spec.Labels...)
	labels = append(labels, string(domaintask.NamespacePriority)+string(spec.Priority))

	req := &github.IssueRequest{
		Title:  github.String(spec.Title),
		Body:   github.String(bodyWithMeta(spec)),
		Labels: &labels,
	}
	issue, _, err := c.gh.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return domaintask.Task{}, wrapErr("create task", err)
	}
	t := fromIssue(issue)
	t.Dependencies = spec.Dependencies
	t.EstimatedHours = spec.EstimatedHours
	return t, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, patch portboard.Patch) error {
	num, err := issueNumber(taskID)
	if err != nil {
		return err
	}

	req := &github.IssueRequest{}
	if patch.Status != nil {
		state := "open"
		if *patch.Status == domaintask.StatusDone {
			state = "closed"
		}
		req.State = github.String(state)
	}
	if patch.Labels != nil {
		req.Labels = &patch.Labels
	}
	if patch.Assignee != nil {
		if *patch.Assignee == "" {
			req.Assignees = &[]string{}
		} else {
			req.Assignees = &[]string{*patch.Assignee}
		}
	}

	if _, _, err := c.gh.Issues.Edit(ctx, c.owner, c.repo, num, req); err != nil {
		return wrapErr("update task", err)
	}
	return nil
}

func (c *Client) AddComment(ctx context.Context, taskID, text string) error {
	num, err := issueNumber(taskID)
	if err != nil {
		return err
	}
	_, _, err = c.gh.Issues.CreateComment(ctx, c.owner, c.repo, num, &github.IssueComment{Body: github.String(text)})
	if err != nil {
		return wrapErr("add comment", err)
	}
	return nil
}

// MoveTask: GitHub Issues has no native column concept outside Projects v2,
// which needs a separate GraphQL surface this adapter does not carry.
// Best-effort: treat the column name as a status transition.
func (c *Client) MoveTask(ctx context.Context, taskID, column string) error {
	status := domaintask.Status(column)
	return c.UpdateTask(ctx, taskID, portboard.Patch{Status: &status})
}

func fromIssue(issue *github.Issue) domaintask.Task {
	t := domaintask.Task{
		ID:          strconv.Itoa(issue.GetNumber()),
		Title:       issue.GetTitle(),
		Description: issue.GetBody(),
		Status:      domaintask.StatusTodo,
	}
	if issue.GetState() == "closed" {
		t.Status = domaintask.StatusDone
	}
	for _, l := range issue.Labels {
		t.Labels = append(t.Labels, l.GetName())
	}
	for _, l := range t.Labels {
		if strings.HasPrefix(l, domaintask.NamespacePriority) {
			t.Priority = domaintask.Priority(strings.TrimPrefix(l, domaintask.NamespacePriority))
		}
		for _, p := range domaintask.PhaseOrder {
			if l == domaintask.NamespacePhase+string(p) {
				t.Phase = p
			}
		}
	}
	if len(issue.Assignees) > 0 {
		t.Assignee = issue.Assignees[0].GetLogin()
		if t.Status == domaintask.StatusTodo {
			t.Status = domaintask.StatusInProgress
		}
	}
	return t
}

// bodyWithMeta appends machine-parseable dependency metadata to the issue
// body, since GitHub Issues carries no structured dependency field.
func bodyWithMeta(spec portboard.CreateSpec) string {
	body := spec.Description
	if len(spec.Dependencies) > 0 {
		body += "\n\n---\ndepends-on: " + strings.Join(spec.Dependencies, ",")
	}
	return body
}

func issueNumber(taskID string) (int, error) {
	n, err := strconv.Atoi(taskID)
	if err != nil {
		return 0, apperr.New(apperr.KindPermanent, "github.issueNumber", fmt.Errorf("invalid task id %q: %w", taskID, err))
	}
	return n, nil
}

func wrapErr(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch {
		case ghErr.Response.StatusCode == 404:
			return apperr.New(apperr.KindNotFound, op, err)
		case ghErr.Response.StatusCode >= 500:
			return apperr.New(apperr.KindTransient, op, err)
		}
	}
	return apperr.New(apperr.KindPermanent, op, err)
}
