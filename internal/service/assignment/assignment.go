// Package assignment implements the AssignmentEngine (C9, §4.9): the hot
// path invoked by request_next_task. Grounded on the teacher's
// service/distributor, which ran the same reject-duplicate -> snapshot ->
// filter -> score -> commit shape for routing work to workers.
package assignment

import (
	"context"
	"sort"
	"time"

	"github.com/coordinator/agent-board/internal/apperr"
	domainagent "github.com/coordinator/agent-board/internal/domain/agent"
	domainassignment "github.com/coordinator/agent-board/internal/domain/assignment"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	portledger "github.com/coordinator/agent-board/internal/port/ledger"
)

// Weights are the five scoring factors of §4.9. Tunable, but their relative
// ordering (ai_recommendation > unblock_impact > priority/skill/predicted)
// must be preserved per §9.
const (
	weightSkillMatch      = 0.15
	weightPriority        = 0.15
	weightUnblockImpact   = 0.25
	weightAIRecommendation = 0.30
	weightPredictedImpact = 0.15
)

// fallbackAIScore is used for ai_recommendation when the AIClient is
// unavailable (§4.9 step 4).
const fallbackAIScore = 0.5

// Instruction is the payload handed back to an agent on a successful claim.
type Instruction struct {
	TaskID             string
	Title              string
	Description        string
	AcceptanceCriteria []string
	EstimatedHours     float64
}

type Engine struct {
	ledger portledger.Ledger
	board  portboard.Client
	ai     portai.Client
}

func NewEngine(ledger portledger.Ledger, board portboard.Client, ai portai.Client) *Engine {
	return &Engine{ledger: ledger, board: board, ai: ai}
}

// RequestNextTask runs the full §4.9 procedure for one agent. ok=false with
// a nil error means "no candidate available" (§4.9: "the engine never
// blocks waiting for new work").
func (e *Engine) RequestNextTask(ctx context.Context, agent domainagent.Agent) (Instruction, bool, error) {
	// Step 1: reject duplicate.
	if existing, ok, err := e.ledger.GetByAgent(ctx, agent.ID); err != nil {
		return Instruction{}, false, err
	} else if ok {
		tasks, err := e.board.ListTasks(ctx)
		if err != nil {
			return Instruction{}, false, err
		}
		for _, t := range tasks {
			if t.ID == existing.TaskID {
				return instructionFor(t), true, nil
			}
		}
		return Instruction{}, false, apperr.New(apperr.KindAgentState, "assignment.RequestNextTask", nil)
	}

	// Step 2: snapshot.
	tasks, err := e.board.ListTasks(ctx)
	if err != nil {
		return Instruction{}, false, err
	}

	// Step 3: candidate filter.
	candidates := filterCandidates(tasks)
	if len(candidates) == 0 {
		return Instruction{}, false, nil
	}

	// Step 4: score.
	scored := make([]scoredTask, 0, len(candidates))
	todoCount := countStatus(tasks, domaintask.StatusTodo)
	for _, t := range candidates {
		score := e.score(ctx, t, agent, tasks, todoCount)
		scored = append(scored, scoredTask{task: t, score: score})
	}

	// Step 5: select.
	winner := selectWinner(scored)

	// Step 6: commit.
	leaseID, err := e.ledger.NextLeaseID(ctx)
	if err != nil {
		return Instruction{}, false, err
	}
	lease := domainassignment.Assignment{
		AgentID:    agent.ID,
		TaskID:     winner.ID,
		AssignedAt: time.Now().UTC(),
		LeaseID:    leaseID,
	}
	if err := e.ledger.Insert(ctx, lease); err != nil {
		// Another agent won the race for this task; this agent gets no task
		// and may call again. No retry is made here or in the transport layer.
		return Instruction{}, false, nil
	}

	assignee := agent.ID
	status := domaintask.StatusInProgress
	if err := e.board.UpdateTask(ctx, winner.ID, portboard.Patch{Status: &status, Assignee: &assignee}); err != nil {
		if apperr.KindOf(err) == apperr.KindTransient {
			if retryErr := e.board.UpdateTask(ctx, winner.ID, portboard.Patch{Status: &status, Assignee: &assignee}); retryErr == nil {
				return instructionFor(winner), true, nil
			}
		}
		_ = e.ledger.Remove(ctx, agent.ID)
		return Instruction{}, false, err
	}

	// Step 7: instruct.
	return instructionFor(winner), true, nil
}

// filterCandidates implements §4.9 step 3: todo, unassigned (by status —
// liveness against the ledger is enforced by Insert's atomicity, not here),
// all dependencies done, and the deployment gate.
func filterCandidates(tasks []domaintask.Task) []domaintask.Task {
	implementationOutstanding := anyImplementationOutstanding(tasks)
	done := statusSet(tasks, domaintask.StatusDone)

	var out []domaintask.Task
	for _, t := range tasks {
		if t.Status != domaintask.StatusTodo {
			continue
		}
		if !allDependenciesDone(t, done) {
			continue
		}
		if domaintask.Classify(t) == domaintask.ClassDeployment && implementationOutstanding {
			continue
		}
		out = append(out, t)
	}
	return out
}

func anyImplementationOutstanding(tasks []domaintask.Task) bool {
	for _, t := range tasks {
		if domaintask.Classify(t) != domaintask.ClassImplementation {
			continue
		}
		if t.Status == domaintask.StatusTodo || t.Status == domaintask.StatusInProgress {
			return true
		}
	}
	return false
}

func statusSet(tasks []domaintask.Task, status domaintask.Status) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tasks {
		if t.Status == status {
			set[t.ID] = struct{}{}
		}
	}
	return set
}

func allDependenciesDone(t domaintask.Task, done map[string]struct{}) bool {
	for _, dep := range t.Dependencies {
		if _, ok := done[dep]; !ok {
			return false
		}
	}
	return true
}

func countStatus(tasks []domaintask.Task, status domaintask.Status) int {
	n := 0
	for _, t := range tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

type scoredTask struct {
	task  domaintask.Task
	score float64
}

// score computes the weighted sum of §4.9 step 4's five factors.
func (e *Engine) score(ctx context.Context, t domaintask.Task, agent domainagent.Agent, allTasks []domaintask.Task, todoCount int) float64 {
	skill := skillMatch(t, agent)
	priority := t.Priority.Weight()
	unblock := unblockImpact(t, allTasks, todoCount)
	aiScore := e.aiRecommendation(ctx, t, agent, allTasks)
	predicted := clip01(priority * (1 + unblock))

	return skill*weightSkillMatch +
		priority*weightPriority +
		unblock*weightUnblockImpact +
		aiScore*weightAIRecommendation +
		predicted*weightPredictedImpact
}

func skillMatch(t domaintask.Task, agent domainagent.Agent) float64 {
	required := t.SkillLabels()
	if len(required) == 0 {
		return 0
	}
	return float64(agent.MatchCount(required)) / float64(len(required))
}

// unblockImpact counts how many currently-blocked todo tasks would become
// candidates if t completed, normalized by the total todo count.
func unblockImpact(t domaintask.Task, allTasks []domaintask.Task, todoCount int) float64 {
	if todoCount == 0 {
		return 0
	}
	doneWithT := statusSet(allTasks, domaintask.StatusDone)
	doneWithT[t.ID] = struct{}{}

	unblocked := 0
	for _, other := range allTasks {
		if other.ID == t.ID || other.Status != domaintask.StatusTodo {
			continue
		}
		if !dependsOn(other, t.ID) {
			continue
		}
		if allDependenciesDone(other, doneWithT) {
			unblocked++
		}
	}
	return float64(unblocked) / float64(todoCount)
}

func dependsOn(t domaintask.Task, id string) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

func (e *Engine) aiRecommendation(ctx context.Context, t domaintask.Task, agent domainagent.Agent, allTasks []domaintask.Task) float64 {
	agentCtx := portai.AgentContext{
		TodoCount:  countStatus(allTasks, domaintask.StatusTodo),
		InProgress: countStatus(allTasks, domaintask.StatusInProgress),
	}
	result, err := e.ai.ScoreTaskForAgent(ctx, t, agent.Skills, agentCtx)
	if err != nil {
		return fallbackAIScore
	}
	return clip01(result.Score)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// selectWinner picks the highest score; ties broken by lower estimated_hours,
// then earlier task_id lexicographically (§4.9 step 5).
func selectWinner(scored []scoredTask) domaintask.Task {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.task.EstimatedHours != b.task.EstimatedHours {
			return a.task.EstimatedHours < b.task.EstimatedHours
		}
		return a.task.ID < b.task.ID
	})
	return scored[0].task
}

func instructionFor(t domaintask.Task) Instruction {
	return Instruction{
		TaskID:             t.ID,
		Title:              t.Title,
		Description:        t.Description,
		AcceptanceCriteria: acceptanceCriteria(t),
		EstimatedHours:     t.EstimatedHours,
	}
}

// acceptanceCriteria derives a short checklist from a task's labels and
// description, since the board carries no dedicated acceptance-criteria field.
func acceptanceCriteria(t domaintask.Task) []string {
	var out []string
	for _, c := range t.ComponentLabels() {
		out = append(out, "Changes are scoped to component: "+c)
	}
	if t.HasDescription() {
		out = append(out, "Implementation matches the task description")
	}
	out = append(out, "All existing tests continue to pass")
	return out
}
