package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domainproject "github.com/coordinator/agent-board/internal/domain/project"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
)

func TestScore_EmptyBoard(t *testing.T) {
	score := Score(nil)
	assert.Equal(t, domainproject.Score{}, score)
	assert.Equal(t, domainproject.ClassEmpty, domainproject.Classify(true, score.Weighted()))
}

func TestScore_AllSubscoresAtMax(t *testing.T) {
	tasks := []domaintask.Task{
		{ID: "a", Description: longDescription(), Labels: []string{"skill:go", "component:api"}, EstimatedHours: 3, Priority: domaintask.PriorityHigh, Dependencies: []string{"b"}},
		{ID: "b", Description: longDescription(), Labels: []string{"skill:go", "component:db"}, EstimatedHours: 2, Priority: domaintask.PriorityLow},
	}
	score := Score(tasks)
	assert.Equal(t, 1.0, score.Descriptions)
	assert.Equal(t, 1.0, score.Labels)
	assert.Equal(t, 1.0, score.Estimates)
	assert.Equal(t, 0.5, score.Priorities) // two tasks, two priorities: 1 - 1/2 is the maximum
	assert.Equal(t, 1.0, score.Dependencies)
	assert.Equal(t, domainproject.ClassExcellent, domainproject.Classify(false, score.Weighted()))
}

func TestScore_ChaoticBoard(t *testing.T) {
	tasks := []domaintask.Task{
		{ID: "a", Priority: domaintask.PriorityMedium},
		{ID: "b", Priority: domaintask.PriorityMedium},
		{ID: "c", Priority: domaintask.PriorityMedium},
	}
	score := Score(tasks)
	assert.Less(t, score.Weighted(), 0.3)
	assert.Equal(t, domainproject.ClassChaotic, domainproject.Classify(false, score.Weighted()))
}

func TestAnalyzer_CachesWithinTTL(t *testing.T) {
	a := New(5 * time.Second)
	capturedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := domainproject.NewSnapshot([]domaintask.Task{{ID: "a", Priority: domaintask.PriorityHigh}}, capturedAt)

	t0 := time.Now()
	score1, _ := a.Analyze(snap, t0)
	score2, _ := a.Analyze(snap, t0.Add(1*time.Second))
	assert.Equal(t, score1, score2)
}

func longDescription() string {
	return "This task description is deliberately long enough to cross the fifty character threshold."
}
