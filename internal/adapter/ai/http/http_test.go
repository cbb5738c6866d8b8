package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
)

func TestClient_ParsePRD_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/parse_prd", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "build a thing", body.Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(portai.PRDResult{
			Features:   []string{"auth", "billing"},
			Confidence: 0.8,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	out, err := c.ParsePRD(context.Background(), "build a thing", portai.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"auth", "billing"}, out.Features)
	assert.Equal(t, 0.8, out.Confidence)
}

func TestClient_ScoreTaskForAgent_NonOKStatusIsErrUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.ScoreTaskForAgent(context.Background(), domaintask.Task{ID: "1"}, []string{"go"}, portai.AgentContext{})
	assert.ErrorIs(t, err, portai.ErrUnavailable)
}

func TestClient_SuggestBlockerResolution_UnreachableHostIsErrUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "")
	_, err := c.SuggestBlockerResolution(context.Background(), domaintask.Task{ID: "1"}, "stuck", "high")
	assert.ErrorIs(t, err, portai.ErrUnavailable)
}

func TestClient_SynthesizeTasks_MalformedJSONIsErrUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.SynthesizeTasks(context.Background(), portai.PRDResult{})
	assert.ErrorIs(t, err, portai.ErrUnavailable)
}
