// Package http implements port/ai.Client as a JSON-over-HTTP client against a
// sidecar LLM-backed service. No ecosystem client exists anywhere in the
// retrieved pack for this kind of backend (see DESIGN.md), so this adapter is
// a direct net/http + encoding/json implementation in the teacher's plain
// request/response style (same timeout and error-wrapping posture as its
// other outbound adapters).
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ portai.Client = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) ParsePRD(ctx context.Context, text string, opts portai.ParseOptions) (portai.PRDResult, error) {
	var out portai.PRDResult
	req := struct {
		Text       string   `json:"text"`
		TechStack  []string `json:"tech_stack,omitempty"`
		Complexity string   `json:"complexity,omitempty"`
	}{text, opts.TechStack, opts.Complexity}
	err := c.do(ctx, "/v1/parse_prd", req, &out)
	return out, err
}

func (c *Client) SynthesizeTasks(ctx context.Context, prd portai.PRDResult) (portai.TaskPlan, error) {
	var out portai.TaskPlan
	err := c.do(ctx, "/v1/synthesize_tasks", prd, &out)
	return out, err
}

func (c *Client) ScoreTaskForAgent(ctx context.Context, t domaintask.Task, agentSkills []string, agentCtx portai.AgentContext) (portai.ScoreResult, error) {
	var out portai.ScoreResult
	req := struct {
		Task        domaintask.Task    `json:"task"`
		AgentSkills []string           `json:"agent_skills"`
		AgentCtx    portai.AgentContext `json:"agent_context"`
	}{t, agentSkills, agentCtx}
	err := c.do(ctx, "/v1/score_task_for_agent", req, &out)
	return out, err
}

func (c *Client) SuggestBlockerResolution(ctx context.Context, t domaintask.Task, description, severity string) (portai.BlockerResolution, error) {
	var out portai.BlockerResolution
	req := struct {
		Task        domaintask.Task `json:"task"`
		Description string          `json:"description"`
		Severity    string          `json:"severity"`
	}{t, description, severity}
	err := c.do(ctx, "/v1/suggest_blocker_resolution", req, &out)
	return out, err
}

// do marshals body, posts it, and decodes the response into out. Any
// transport failure, timeout, or non-200 response is normalized to
// ai.ErrUnavailable: the LLM backend is always a best-effort dependency, and
// callers fall back to deterministic logic rather than see a typed error.
func (c *Client) do(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.New(apperr.KindPermanent, "ai.http.do", fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.New(apperr.KindPermanent, "ai.http.do", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return portai.ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return portai.ErrUnavailable
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return portai.ErrUnavailable
	}
	return nil
}
