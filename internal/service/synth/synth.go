// Package synth implements the PRDParser + ProjectSynthesizer (C6, §4.6):
// turns a natural-language project description into a dependency-connected,
// phase-ordered task graph and publishes it to the board. Grounded on the
// teacher's service/distributor, which drove a similar parse-plan-publish
// pipeline for incoming work.
package synth

import (
	"context"
	"strings"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	"github.com/coordinator/agent-board/internal/service/mode"
	"github.com/coordinator/agent-board/internal/service/safety"
)

const defaultComplexity = "standard"

// Options carries the recognized option set of §4.6. The ToolSurface reads
// only these keys from the tool arguments; any other key is ignored.
type Options struct {
	TeamSize        int
	TechStack       []string
	Deadline        string // ISO-8601, informational only
	AllowOnNonEmpty bool
	Complexity      string // mvp | standard | enterprise
}

// Result is the output shape of create_project_from_description (§4.6).
type Result struct {
	TasksCreated       int
	Phases             []string
	EstimatedDays      int
	DependenciesMapped int
	RiskLevel          string
	Confidence         float64
	MissingTasks       []string // titles that failed to publish (partial success)
}

type Synthesizer struct {
	ai    portai.Client
	board portboard.Client
}

func New(ai portai.Client, board portboard.Client) *Synthesizer {
	return &Synthesizer{ai: ai, board: board}
}

// CreateProject runs the full §4.6 procedure. existingTaskCount gates the
// non-empty-board refusal (step 0, surfaced as KindNonEmptyBoard).
func (s *Synthesizer) CreateProject(ctx context.Context, description, projectName string, existingTaskCount int, opts Options) (Result, error) {
	if !mode.CreatorAllowed(existingTaskCount, opts.AllowOnNonEmpty) {
		return Result{}, apperr.New(apperr.KindNonEmptyBoard, "synth.CreateProject", nil)
	}
	complexity := opts.Complexity
	if complexity == "" {
		complexity = defaultComplexity
	}

	plan, confidence, err := s.plan(ctx, description, opts.TechStack, complexity)
	if err != nil {
		return Result{}, err
	}

	nodes := toSafetyNodes(plan.Tasks)
	safe, err := safety.Infer(nodes)
	if err != nil {
		return Result{}, err
	}
	mergeInferredEdges(plan.Tasks, safe)

	order := safety.TopologicalOrder(safe)
	created, missing, depsMapped, err := s.publish(ctx, plan.Tasks, order)
	if err != nil {
		return Result{}, err
	}

	phases := plan.Phases
	if len(phases) == 0 {
		phases = phasesPresent(plan.Tasks)
	}

	return Result{
		TasksCreated:       created,
		Phases:             phases,
		EstimatedDays:      estimatedDays(plan, opts.TeamSize),
		DependenciesMapped: depsMapped,
		RiskLevel:          riskLevel(missing, created),
		Confidence:         confidence,
		MissingTasks:       missing,
	}, nil
}

// plan runs step 1-2 of §4.6: parse_prd then synthesize_tasks, or the
// template fallback if the AIClient is unavailable.
func (s *Synthesizer) plan(ctx context.Context, description string, techStack []string, complexity string) (portai.TaskPlan, float64, error) {
	prd, err := s.ai.ParsePRD(ctx, description, portai.ParseOptions{TechStack: techStack, Complexity: complexity})
	if err == nil {
		taskPlan, err := s.ai.SynthesizeTasks(ctx, prd)
		if err == nil {
			return taskPlan, prd.Confidence, nil
		}
	}

	tmpl := matchTemplate(description)
	tasks := tmpl.tasks(complexity, techStack)
	return portai.TaskPlan{Tasks: tasks, Phases: phasesPresent(tasks), EstimatedDays: estimateDaysFromHours(tasks, 1)}, 0.5, nil
}

func toSafetyNodes(tasks []portai.PlannedTask) []safety.Node {
	nodes := make([]safety.Node, 0, len(tasks))
	for _, t := range tasks {
		nodes = append(nodes, safety.Node{
			ID:          t.TempID,
			Title:       t.Title,
			Description: t.Description,
			Labels:      t.Labels,
			Phase:       t.Phase,
			DependsOn:   append([]string(nil), t.DependsOn...),
		})
	}
	return nodes
}

// mergeInferredEdges writes safety's augmented dependency edges back onto
// the original PlannedTask slice, in place, by TempID.
func mergeInferredEdges(tasks []portai.PlannedTask, safe []safety.Node) {
	byID := make(map[string]safety.Node, len(safe))
	for _, n := range safe {
		byID[n.ID] = n
	}
	for i := range tasks {
		if n, ok := byID[tasks[i].TempID]; ok {
			tasks[i].DependsOn = n.DependsOn
		}
	}
}

// publish creates tasks in dependency order, translating TempIDs to
// board-assigned ids as they're returned. On PermanentError for one task it
// rolls forward: independent tasks keep publishing; the failure is reported
// back rather than aborting the whole plan (§4.6 step 4).
func (s *Synthesizer) publish(ctx context.Context, tasks []portai.PlannedTask, order []string) (created int, missing []string, depsMapped int, err error) {
	byTempID := make(map[string]portai.PlannedTask, len(tasks))
	for _, t := range tasks {
		byTempID[t.TempID] = t
	}
	realID := make(map[string]string, len(tasks))

	for _, tempID := range order {
		t, ok := byTempID[tempID]
		if !ok {
			continue
		}

		deps := make([]string, 0, len(t.DependsOn))
		skip := false
		for _, d := range t.DependsOn {
			if rid, ok := realID[d]; ok {
				deps = append(deps, rid)
				depsMapped++
			} else {
				// A prerequisite never got created; this task cannot be safely published.
				skip = true
			}
		}
		if skip {
			missing = append(missing, t.Title)
			continue
		}

		board, createErr := s.board.CreateTask(ctx, portboard.CreateSpec{
			Title:          t.Title,
			Description:    t.Description,
			Labels:         append(append([]string(nil), t.Labels...), string(domaintask.NamespacePhase)+string(t.Phase)),
			Priority:       t.Priority,
			EstimatedHours: t.EstimatedHours,
			Dependencies:   deps,
		})
		if createErr != nil {
			if apperr.KindOf(createErr) == apperr.KindPermanent {
				missing = append(missing, t.Title)
				continue
			}
			return created, missing, depsMapped, createErr
		}
		realID[tempID] = board.ID
		created++
	}
	return created, missing, depsMapped, nil
}

func phasesPresent(tasks []portai.PlannedTask) []string {
	seen := make(map[domaintask.Phase]struct{})
	var phases []string
	for _, p := range domaintask.PhaseOrder {
		for _, t := range tasks {
			if t.Phase == p {
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					phases = append(phases, string(p))
				}
				break
			}
		}
	}
	return phases
}

// estimatedDays converts summed effort hours into a wall-clock day estimate,
// scaled down by team_size concurrency (§4.6: "team_size scales concurrency
// estimate"). An eight-hour workday is assumed per engineer.
func estimatedDays(plan portai.TaskPlan, teamSize int) int {
	if plan.EstimatedDays > 0 {
		return scaleDaysByTeam(plan.EstimatedDays, teamSize)
	}
	return scaleDaysByTeam(estimateDaysFromHours(plan.Tasks, 1), teamSize)
}

func estimateDaysFromHours(tasks []portai.PlannedTask, teamSize int) int {
	total := 0.0
	for _, t := range tasks {
		total += t.EstimatedHours
	}
	if teamSize < 1 {
		teamSize = 1
	}
	days := total / 8.0 / float64(teamSize)
	if days < 1 {
		return 1
	}
	return int(days + 0.5)
}

func scaleDaysByTeam(days, teamSize int) int {
	if teamSize <= 1 {
		return days
	}
	scaled := days / teamSize
	if scaled < 1 {
		return 1
	}
	return scaled
}

func riskLevel(missing []string, created int) string {
	switch {
	case len(missing) == 0:
		return "low"
	case created == 0:
		return "high"
	default:
		return "medium"
	}
}

func normalizeForMatch(s string) string {
	return strings.ToLower(s)
}

func containsWord(haystack, word string) bool {
	return strings.Contains(haystack, strings.ToLower(word))
}
