// Package safety implements DependencyInferer + SafetyChecker (C8, §4.8): it
// infers missing dependency edges over a task graph and enforces the hard
// ordering invariants that every published plan must satisfy before it
// reaches the board. Grounded on the teacher's service/review package, which
// ran a comparable "infer then gate" pass before letting a pipeline advance.
package safety

import (
	"sort"
	"strings"

	"github.com/coordinator/agent-board/internal/apperr"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
)

// Node is one task plus its dependency edges, as reasoned about prior to
// publication. IDs here may be board ids or synthesizer temp ids — this
// package is id-scheme agnostic.
type Node struct {
	ID           string
	Title        string
	Description  string
	Labels       []string
	Phase        domaintask.Phase
	DependsOn    []string
	Confidence   map[string]float64 // edge target -> confidence, for cycle repair
}

func (n Node) classify() domaintask.Class {
	return domaintask.Classify(domaintask.Task{Title: n.Title, Labels: n.Labels})
}

func (n Node) componentLabels() []string {
	return domaintask.Task{Labels: n.Labels}.ComponentLabels()
}

func (n Node) hasOverride() bool {
	return domaintask.Task{Labels: n.Labels}.HasLabel("override_safety")
}

const maxCycleRepairs = 8

// Infer applies the four inference rules of §4.8 in order, mutating each
// node's DependsOn in place, then runs cycle detection and the I1-I3
// invariants. Returns the (possibly edge-augmented) graph, or a
// *apperr.Error with KindCyclicPlan / KindSafetyViolation on failure.
func Infer(nodes []Node) ([]Node, error) {
	phaseOrdering(nodes)
	typeOrdering(nodes)
	explicitReferences(nodes)

	nodes, err := repairCycles(nodes)
	if err != nil {
		return nil, err
	}

	if err := checkInvariants(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func indexByID(nodes []Node) map[string]*Node {
	m := make(map[string]*Node, len(nodes))
	for i := range nodes {
		m[nodes[i].ID] = &nodes[i]
	}
	return m
}

// phaseOrdering is rule 1: for adjacent phases with overlapping component
// labels, add an edge from the earlier phase's task to the later phase's.
func phaseOrdering(nodes []Node) {
	phaseIndex := make(map[domaintask.Phase]int, len(domaintask.PhaseOrder))
	for i, p := range domaintask.PhaseOrder {
		phaseIndex[p] = i
	}

	for i := range nodes {
		later := &nodes[i]
		li, ok := phaseIndex[later.Phase]
		if !ok {
			continue
		}
		for j := range nodes {
			if i == j {
				continue
			}
			earlier := &nodes[j]
			ei, ok := phaseIndex[earlier.Phase]
			if !ok || ei != li-1 {
				continue
			}
			if overlaps(later.componentLabels(), earlier.componentLabels()) {
				addEdge(later, earlier.ID, 0.6)
			}
		}
	}
}

// typeOrdering is rule 2, the hard safety rule: every deployment task depends
// on every implementation/testing task sharing a component label, or on every
// implementation/testing task if neither side carries component labels.
func typeOrdering(nodes []Node) {
	for i := range nodes {
		dep := &nodes[i]
		if dep.classify() != domaintask.ClassDeployment || dep.hasOverride() {
			continue
		}
		depComponents := dep.componentLabels()

		for j := range nodes {
			if i == j {
				continue
			}
			cand := &nodes[j]
			class := cand.classify()
			if class != domaintask.ClassImplementation && class != domaintask.ClassTesting {
				continue
			}
			candComponents := cand.componentLabels()
			if len(depComponents) == 0 && len(candComponents) == 0 {
				addEdge(dep, cand.ID, 0.95)
				continue
			}
			if overlaps(depComponents, candComponents) {
				addEdge(dep, cand.ID, 0.95)
			}
		}
	}
}

// explicitReferences is rule 3: a description naming another task's title
// verbatim implies a dependency on it.
func explicitReferences(nodes []Node) {
	for i := range nodes {
		referrer := &nodes[i]
		for _, other := range nodes {
			if other.ID == referrer.ID || other.Title == "" {
				continue
			}
			if strings.Contains(referrer.Description, other.Title) {
				addEdge(referrer, other.ID, 0.4)
			}
		}
	}
}

func addEdge(n *Node, target string, confidence float64) {
	if n.ID == target {
		return
	}
	for _, d := range n.DependsOn {
		if d == target {
			return
		}
	}
	n.DependsOn = append(n.DependsOn, target)
	if n.Confidence == nil {
		n.Confidence = make(map[string]float64)
	}
	n.Confidence[target] = confidence
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

// repairCycles runs a topological sort; on cycle, removes the lowest-
// confidence inferred edge within the cycle and retries, up to
// maxCycleRepairs times.
func repairCycles(nodes []Node) ([]Node, error) {
	for attempt := 0; attempt <= maxCycleRepairs; attempt++ {
		cycle, ok := findCycle(nodes)
		if !ok {
			return nodes, nil
		}
		if attempt == maxCycleRepairs {
			return nil, apperr.Newf(apperr.KindCyclicPlan, "safety.Infer", "dependency cycle could not be repaired after %d attempts: %v", maxCycleRepairs, cycle)
		}
		removeLowestConfidenceEdge(nodes, cycle)
	}
	return nodes, nil
}

// findCycle returns the node ids forming a cycle, if any, via DFS.
func findCycle(nodes []Node) ([]string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	byID := indexByID(nodes)
	color := make(map[string]int, len(nodes))
	parent := make(map[string]string)

	var stack []string
	var dfs func(id string) ([]string, bool)
	dfs = func(id string) ([]string, bool) {
		color[id] = gray
		stack = append(stack, id)
		n, ok := byID[id]
		if ok {
			for _, dep := range n.DependsOn {
				if _, exists := byID[dep]; !exists {
					continue
				}
				switch color[dep] {
				case white:
					parent[dep] = id
					if cyc, found := dfs(dep); found {
						return cyc, true
					}
				case gray:
					cyc := []string{dep}
					for cur := id; cur != dep; cur = parent[cur] {
						cyc = append(cyc, cur)
					}
					return cyc, true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil, false
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cyc, found := dfs(id); found {
				return cyc, true
			}
		}
	}
	return nil, false
}

// removeLowestConfidenceEdge deletes the weakest inferred edge between
// members of cycle. Explicit edges (no recorded confidence) are never
// removed, so a cycle made only of explicit edges is left as it is.
func removeLowestConfidenceEdge(nodes []Node, cycle []string) {
	byID := indexByID(nodes)
	inCycle := make(map[string]struct{}, len(cycle))
	for _, id := range cycle {
		inCycle[id] = struct{}{}
	}

	var worstNode *Node
	var worstTarget string
	worstConfidence := 2.0

	for id := range inCycle {
		n, ok := byID[id]
		if !ok {
			continue
		}
		for _, dep := range n.DependsOn {
			if _, ok := inCycle[dep]; !ok {
				continue
			}
			conf, known := n.Confidence[dep]
			if !known {
				continue // explicit, non-inferred edges are never dropped
			}
			if conf < worstConfidence {
				worstConfidence = conf
				worstNode = n
				worstTarget = dep
			}
		}
	}

	if worstNode == nil {
		return
	}
	filtered := worstNode.DependsOn[:0]
	for _, d := range worstNode.DependsOn {
		if d != worstTarget {
			filtered = append(filtered, d)
		}
	}
	worstNode.DependsOn = filtered
	delete(worstNode.Confidence, worstTarget)
}

// checkInvariants enforces I1-I3 of §4.8 post-inference.
func checkInvariants(nodes []Node) error {
	byID := indexByID(nodes)

	hasImplementation := false
	for _, n := range nodes {
		if n.classify() == domaintask.ClassImplementation {
			hasImplementation = true
			break
		}
	}

	for _, n := range nodes {
		// I3: every referenced dependency exists.
		for _, dep := range n.DependsOn {
			if _, ok := byID[dep]; !ok {
				return apperr.Newf(apperr.KindSafetyViolation, "safety.checkInvariants", "task %q depends on nonexistent task %q", n.ID, dep)
			}
		}
		// I2: no task is its own ancestor — re-verified here since
		// checkInvariants is also callable standalone, without Infer's cycle pass.
		if canReach(n.ID, n.ID, byID, make(map[string]bool)) {
			return apperr.Newf(apperr.KindSafetyViolation, "safety.checkInvariants", "task %q is its own ancestor", n.ID)
		}
		// I1: deployment tasks need implementation ancestry when implementation exists.
		if n.classify() == domaintask.ClassDeployment && hasImplementation && !n.hasOverride() {
			if !hasImplementationAncestor(n.ID, byID, make(map[string]bool)) {
				return apperr.Newf(apperr.KindSafetyViolation, "safety.checkInvariants", "deployment task %q has no implementation dependency", n.ID)
			}
		}
	}
	return nil
}

// canReach reports whether target is reachable by walking DependsOn edges
// starting from start's direct dependencies (i.e. whether target is an
// ancestor of start in the dependency graph).
func canReach(start, target string, byID map[string]*Node, visited map[string]bool) bool {
	n, ok := byID[start]
	if !ok {
		return false
	}
	for _, dep := range n.DependsOn {
		if dep == target {
			return true
		}
		if visited[dep] {
			continue
		}
		visited[dep] = true
		if canReach(dep, target, byID, visited) {
			return true
		}
	}
	return false
}

func hasImplementationAncestor(id string, byID map[string]*Node, visited map[string]bool) bool {
	n, ok := byID[id]
	if !ok {
		return false
	}
	for _, dep := range n.DependsOn {
		if visited[dep] {
			continue
		}
		visited[dep] = true
		depNode, ok := byID[dep]
		if !ok {
			continue
		}
		if depNode.classify() == domaintask.ClassImplementation {
			return true
		}
		if hasImplementationAncestor(dep, byID, visited) {
			return true
		}
	}
	return false
}

// TopologicalOrder returns node ids in dependency order (prerequisites
// first), for publication (§4.6 step 4). Assumes the graph is already
// acyclic — callers must run Infer first.
func TopologicalOrder(nodes []Node) []string {
	byID := indexByID(nodes)
	visited := make(map[string]bool, len(nodes))
	var order []string

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		n, ok := byID[id]
		if !ok {
			return
		}
		deps := append([]string(nil), n.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			visit(dep)
		}
		order = append(order, id)
	}
	for _, id := range ids {
		visit(id)
	}
	return order
}
