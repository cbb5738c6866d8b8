// Package task models the board's work items and their invariants.
// Tasks are owned by the board (external truth); this package only
// describes the shape the coordinator reasons about between snapshots.
package task

import "strings"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight returns the total ordering value of a priority: urgent > high > medium > low.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityUrgent:
		return 1.0
	case PriorityHigh:
		return 0.75
	case PriorityMedium:
		return 0.5
	case PriorityLow:
		return 0.25
	default:
		return 0.5
	}
}

// Phase is a coarse stage label used by the safety checker for ordering.
type Phase string

const (
	PhaseSetup          Phase = "setup"
	PhaseDesign         Phase = "design"
	PhaseImplementation Phase = "implementation"
	PhaseTesting        Phase = "testing"
	PhaseDeployment     Phase = "deployment"
)

// PhaseOrder is the total order over phases used by rule 1 of the DependencyInferer.
var PhaseOrder = []Phase{PhaseSetup, PhaseDesign, PhaseImplementation, PhaseTesting, PhaseDeployment}

// Reserved label namespaces recognized by the scoring and safety layers.
// Any other label is preserved verbatim but carries no special meaning.
const (
	NamespacePhase     = "phase:"
	NamespaceComponent = "component:"
	NamespaceType      = "type:"
	NamespacePriority  = "priority:"
	NamespaceSkill     = "skill:"
)

// Task is the coordinator's in-memory view of one board item. ID is board-assigned
// and opaque; the coordinator never invents its own task identifiers.
type Task struct {
	ID             string
	Title          string
	Description    string
	Status         Status
	Labels         []string
	Priority       Priority
	EstimatedHours float64 // 0 means "unset"
	Dependencies   []string
	Assignee       string // agent_id, empty if unassigned
	Phase          Phase
}

// HasLabel reports whether the task carries the exact label (case-sensitive,
// matching the literal strings a board provider returns).
func (t Task) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// LabelsWithPrefix returns the suffixes of every label in the given reserved namespace,
// e.g. LabelsWithPrefix("skill:") on ["skill:go", "priority:high"] returns ["go"].
func (t Task) LabelsWithPrefix(prefix string) []string {
	var out []string
	for _, l := range t.Labels {
		if strings.HasPrefix(l, prefix) {
			out = append(out, strings.TrimPrefix(l, prefix))
		}
	}
	return out
}

// ComponentLabels returns the task's "component:*" label suffixes.
func (t Task) ComponentLabels() []string { return t.LabelsWithPrefix(NamespaceComponent) }

// SkillLabels returns the task's "skill:*" label suffixes, used by skill_match scoring.
func (t Task) SkillLabels() []string { return t.LabelsWithPrefix(NamespaceSkill) }

// HasDescription reports whether the description meets the BoardAnalyzer's
// length threshold (§4.4: "length ≥ 50 characters").
func (t Task) HasDescription() bool { return len(strings.TrimSpace(t.Description)) >= 50 }

// Class is the keyword classification used by rule 2/4 of the DependencyInferer.
type Class string

const (
	ClassDeployment     Class = "deployment"
	ClassImplementation Class = "implementation"
	ClassTesting        Class = "testing"
	ClassOther          Class = "other"
)

var deploymentKeywords = []string{"deploy", "release", "production", "prod", "rollout", "launch"}
var implementationKeywords = []string{"implement", "build", "develop", "create endpoint", "add feature", "code"}
var testingKeywords = []string{"test", "qa", "verify", "validate", "coverage"}

// HasOverrideSafety reports whether the task opts out of automatic safety inference
// via the explicit "override_safety" label (§4.8 rule 4).
func (t Task) HasOverrideSafety() bool { return t.HasLabel("override_safety") }

// Classify applies the keyword classifier of §4.8 rule 4 to title+labels.
// Title/keyword matching never overrides an explicit "type:*" label when present.
func Classify(t Task) Class {
	for _, l := range t.Labels {
		switch l {
		case "type:deployment", "type:release":
			return ClassDeployment
		case "type:implementation":
			return ClassImplementation
		case "type:testing":
			return ClassTesting
		}
	}

	haystack := strings.ToLower(t.Title + " " + strings.Join(t.Labels, " "))
	if containsAny(haystack, deploymentKeywords) {
		return ClassDeployment
	}
	if containsAny(haystack, testingKeywords) {
		return ClassTesting
	}
	if containsAny(haystack, implementationKeywords) {
		return ClassImplementation
	}
	return ClassOther
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// ListFilters narrows a board query; a nil field means "no filter".
type ListFilters struct {
	Status     *Status
	Priority   *Priority
	AssignedTo *string
	Labels     []string
}
