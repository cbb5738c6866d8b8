// Package feature implements the FeatureInserter (C7, §4.7): given a live
// project and a feature description, produces a small task plan wired into
// the existing dependency graph at a chosen integration point. Grounded on
// the teacher's service/distributor incremental-assignment logic, adapted
// from "route one unit of work" to "insert N related units of work".
package feature

import (
	"context"
	"strings"
	"time"

	domainproject "github.com/coordinator/agent-board/internal/domain/project"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	"github.com/coordinator/agent-board/internal/service/safety"
)

type IntegrationPoint string

const (
	IntegrationAutoDetect    IntegrationPoint = "auto_detect"
	IntegrationAfterCurrent  IntegrationPoint = "after_current"
	IntegrationParallel      IntegrationPoint = "parallel"
	IntegrationNewPhase      IntegrationPoint = "new_phase"
)

// overlapThreshold is the fixed label/title-token overlap fraction used by
// auto_detect to decide a new task depends on an existing one (§4.7 step 3).
const overlapThreshold = 0.34

type Result struct {
	TasksCreated      int
	IntegrationPoints []string // titles of existing tasks the new plan was wired onto
	Confidence        float64
}

type Inserter struct {
	ai    portai.Client
	board portboard.Client
}

func New(ai portai.Client, board portboard.Client) *Inserter {
	return &Inserter{ai: ai, board: board}
}

func (ins *Inserter) AddFeature(ctx context.Context, description string, point IntegrationPoint) (Result, error) {
	existing, err := ins.board.ListTasks(ctx)
	if err != nil {
		return Result{}, err
	}
	snap := domainproject.NewSnapshot(existing, time.Now().UTC())

	plan, confidence, err := ins.plan(ctx, description, existing)
	if err != nil {
		return Result{}, err
	}

	integrationPoints := resolveIntegrationPoints(plan.Tasks, snap.Tasks, point, description)
	applyIntegrationLinks(plan.Tasks, integrationPoints)

	nodes := toSafetyNodesWithExisting(plan.Tasks, snap.Tasks)
	safe, err := safety.Infer(nodes)
	if err != nil {
		return Result{}, err
	}
	mergeBack(plan.Tasks, safe)

	order := safety.TopologicalOrder(safe)
	created, linkedTitles, err := ins.publish(ctx, plan.Tasks, snap.Tasks, order)
	if err != nil {
		return Result{}, err
	}

	return Result{TasksCreated: created, IntegrationPoints: linkedTitles, Confidence: confidence}, nil
}

func (ins *Inserter) plan(ctx context.Context, description string, existing []domaintask.Task) (portai.TaskPlan, float64, error) {
	prd, err := ins.ai.ParsePRD(ctx, description, portai.ParseOptions{})
	if err == nil {
		plan, err := ins.ai.SynthesizeTasks(ctx, prd)
		if err == nil && len(plan.Tasks) > 0 {
			return plan, prd.Confidence, nil
		}
	}
	return fallbackPlan(description), 0.5, nil
}

// fallbackPlan produces a small deterministic 3-task plan when the AIClient
// is unavailable, themed off the feature description's own words.
func fallbackPlan(description string) portai.TaskPlan {
	name := strings.TrimSpace(description)
	if len(name) > 60 {
		name = name[:60]
	}
	return portai.TaskPlan{
		Tasks: []portai.PlannedTask{
			{TempID: "feat-design", Title: "Design: " + name, Description: "Design the approach for: " + description, Priority: domaintask.PriorityMedium, EstimatedHours: 2, Phase: domaintask.PhaseDesign},
			{TempID: "feat-impl", Title: "Implement: " + name, Description: "Implement: " + description, Priority: domaintask.PriorityHigh, EstimatedHours: 6, Phase: domaintask.PhaseImplementation, DependsOn: []string{"feat-design"}},
			{TempID: "feat-test", Title: "Test: " + name, Description: "Write tests covering: " + description, Priority: domaintask.PriorityMedium, EstimatedHours: 3, Phase: domaintask.PhaseTesting, DependsOn: []string{"feat-impl"}},
		},
	}
}

// resolveIntegrationPoints implements §4.7 step 3: for each new task, decide
// which existing task(s) it should depend on, keyed by the new task's TempID.
func resolveIntegrationPoints(newTasks []portai.PlannedTask, existing []domaintask.Task, point IntegrationPoint, featureDescription string) map[string][]string {
	links := make(map[string][]string)

	switch point {
	case IntegrationParallel:
		// No dependencies beyond what SafetyChecker requires.
	case IntegrationAfterCurrent:
		anchors := tasksWithStatus(existing, domaintask.StatusInProgress)
		if len(anchors) == 0 {
			anchors = mostRecentlyCreated(existing, 3)
		}
		for _, t := range newTasks {
			links[t.TempID] = anchors
		}
	case IntegrationNewPhase:
		lastTerminal := lastTaskOfTerminalPhase(existing)
		if lastTerminal != "" {
			for _, t := range newTasks {
				links[t.TempID] = []string{lastTerminal}
			}
		}
	default: // auto_detect
		for _, t := range newTasks {
			links[t.TempID] = autoDetectLinks(t, existing, featureDescription)
		}
	}
	return links
}

func applyIntegrationLinks(newTasks []portai.PlannedTask, links map[string][]string) {
	for i := range newTasks {
		existingDeps := links[newTasks[i].TempID]
		newTasks[i].DependsOn = append(append([]string(nil), newTasks[i].DependsOn...), existingDeps...)
	}
}

func autoDetectLinks(t portai.PlannedTask, existing []domaintask.Task, featureDescription string) []string {
	newTokens := titleTokens(t.Title + " " + featureDescription)
	newComponents := labelsWithPrefix(t.Labels, domaintask.NamespaceComponent)

	var best string
	bestScore := 0.0
	var latestUnfinishedOnComponent string

	for _, ex := range existing {
		exComponents := ex.ComponentLabels()
		if overlaps(newComponents, exComponents) && ex.Status != domaintask.StatusDone {
			latestUnfinishedOnComponent = ex.ID
		}

		score := tokenOverlap(newTokens, titleTokens(ex.Title))
		if score > bestScore {
			bestScore = score
			best = ex.ID
		}
	}

	if bestScore >= overlapThreshold {
		return []string{best}
	}
	if latestUnfinishedOnComponent != "" {
		return []string{latestUnfinishedOnComponent}
	}
	return nil
}

func toSafetyNodesWithExisting(newTasks []portai.PlannedTask, existing []domaintask.Task) []safety.Node {
	nodes := make([]safety.Node, 0, len(newTasks)+len(existing))
	for _, t := range newTasks {
		nodes = append(nodes, safety.Node{ID: t.TempID, Title: t.Title, Description: t.Description, Labels: t.Labels, Phase: t.Phase, DependsOn: append([]string(nil), t.DependsOn...)})
	}
	for _, ex := range existing {
		nodes = append(nodes, safety.Node{ID: ex.ID, Title: ex.Title, Description: ex.Description, Labels: ex.Labels, Phase: ex.Phase, DependsOn: append([]string(nil), ex.Dependencies...)})
	}
	return nodes
}

func mergeBack(newTasks []portai.PlannedTask, safe []safety.Node) {
	byID := make(map[string]safety.Node, len(safe))
	for _, n := range safe {
		byID[n.ID] = n
	}
	for i := range newTasks {
		if n, ok := byID[newTasks[i].TempID]; ok {
			newTasks[i].DependsOn = n.DependsOn
		}
	}
}

// publish creates only the new tasks (existing ones are already on the
// board); dependencies on existing tasks use their board id directly.
func (ins *Inserter) publish(ctx context.Context, newTasks []portai.PlannedTask, existing []domaintask.Task, order []string) (created int, linkedTitles []string, err error) {
	existingByID := make(map[string]domaintask.Task, len(existing))
	for _, ex := range existing {
		existingByID[ex.ID] = ex
	}
	newByID := make(map[string]portai.PlannedTask, len(newTasks))
	for _, t := range newTasks {
		newByID[t.TempID] = t
	}
	realID := make(map[string]string, len(newTasks))
	linked := make(map[string]struct{})

	for _, id := range order {
		t, isNew := newByID[id]
		if !isNew {
			continue // existing task, nothing to publish
		}

		deps := make([]string, 0, len(t.DependsOn))
		for _, d := range t.DependsOn {
			if rid, ok := realID[d]; ok {
				deps = append(deps, rid)
				continue
			}
			if ex, ok := existingByID[d]; ok {
				deps = append(deps, ex.ID)
				if _, seen := linked[ex.ID]; !seen {
					linked[ex.ID] = struct{}{}
					linkedTitles = append(linkedTitles, ex.Title)
				}
			}
		}

		board, createErr := ins.board.CreateTask(ctx, portboard.CreateSpec{
			Title:          t.Title,
			Description:    t.Description,
			Labels:         append(append([]string(nil), t.Labels...), string(domaintask.NamespacePhase)+string(t.Phase)),
			Priority:       t.Priority,
			EstimatedHours: t.EstimatedHours,
			Dependencies:   deps,
		})
		if createErr != nil {
			return created, linkedTitles, createErr
		}
		realID[id] = board.ID
		created++
	}
	return created, linkedTitles, nil
}

func tasksWithStatus(tasks []domaintask.Task, status domaintask.Status) []string {
	var out []string
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t.ID)
		}
	}
	return out
}

func mostRecentlyCreated(tasks []domaintask.Task, n int) []string {
	if len(tasks) == 0 {
		return nil
	}
	if n > len(tasks) {
		n = len(tasks)
	}
	out := make([]string, 0, n)
	for i := len(tasks) - n; i < len(tasks); i++ {
		out = append(out, tasks[i].ID)
	}
	return out
}

func lastTaskOfTerminalPhase(tasks []domaintask.Task) string {
	terminal := domaintask.PhaseOrder[len(domaintask.PhaseOrder)-1]
	var last string
	for _, t := range tasks {
		if t.Phase == terminal {
			last = t.ID
		}
	}
	if last == "" && len(tasks) > 0 {
		last = tasks[len(tasks)-1].ID
	}
	return last
}

func titleTokens(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) > 3 {
			set[w] = struct{}{}
		}
	}
	return set
}

func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}

func labelsWithPrefix(labels []string, prefix string) []string {
	return domaintask.Task{Labels: labels}.LabelsWithPrefix(prefix)
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, y := range b {
		if _, ok := set[y]; ok {
			return true
		}
	}
	return false
}
