package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordinator/agent-board/internal/apperr"
)

func TestRegister_DuplicateAgentRejected(t *testing.T) {
	r := New()
	_, err := r.Register("a1", "Ada", "worker", []string{"go"})
	require.NoError(t, err)

	_, err = r.Register("a1", "Ada", "worker", []string{"go"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindDuplicateAgent, apperr.KindOf(err))
}

func TestSetCurrentTask_UpdatesRegisteredAgent(t *testing.T) {
	r := New()
	_, err := r.Register("a1", "Ada", "worker", nil)
	require.NoError(t, err)

	r.SetCurrentTask("a1", "t1")
	a, ok := r.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "t1", a.CurrentTask)
}

func TestList_ReturnsAllRegisteredAgents(t *testing.T) {
	r := New()
	r.Register("a1", "Ada", "worker", nil)
	r.Register("a2", "Bea", "worker", nil)
	assert.Len(t, r.List(), 2)
}
