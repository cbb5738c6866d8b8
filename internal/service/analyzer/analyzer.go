// Package analyzer implements the BoardAnalyzer (C4, §4.4): a deterministic,
// testable scoring pass over a ProjectSnapshot that classifies board
// structure quality. Grounded on the teacher's service/review scoring pass,
// which folded several independent signals into one weighted verdict.
package analyzer

import (
	"sync"
	"time"

	domainproject "github.com/coordinator/agent-board/internal/domain/project"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
)

// Analyzer computes BoardQualityScore over snapshots, caching the last result
// for at most cacheTTL (§5: "BoardAnalyzer caches are bounded by TTL, default
// 5s, and are safe to recompute").
type Analyzer struct {
	cacheTTL time.Duration

	mu        sync.Mutex
	cachedAt  time.Time
	cached    domainproject.Score
	cachedCls domainproject.Class
	cachedKey time.Time // snapshot's CapturedAt, to invalidate on a fresh scan
}

const DefaultCacheTTL = 5 * time.Second

func New(cacheTTL time.Duration) *Analyzer {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Analyzer{cacheTTL: cacheTTL}
}

// Analyze returns the weighted score and class for snap, reusing the cached
// result when snap is the same capture and the cache hasn't expired.
func (a *Analyzer) Analyze(snap domainproject.Snapshot, now time.Time) (domainproject.Score, domainproject.Class) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cachedKey.Equal(snap.CapturedAt) && now.Sub(a.cachedAt) < a.cacheTTL {
		return a.cached, a.cachedCls
	}

	score := Score(snap.Tasks)
	class := domainproject.Classify(len(snap.Tasks) == 0, score.Weighted())

	a.cached = score
	a.cachedCls = class
	a.cachedAt = now
	a.cachedKey = snap.CapturedAt
	return score, class
}

// Score computes the five subscores of §3/§4.4 directly, with no caching;
// Analyze calls it on a cache miss.
func Score(tasks []domaintask.Task) domainproject.Score {
	if len(tasks) == 0 {
		return domainproject.Score{}
	}

	return domainproject.Score{
		Descriptions: fractionWithDescription(tasks),
		Labels:       fractionWithTwoLabels(tasks),
		Estimates:    fractionWithPositiveEstimate(tasks),
		Priorities:   priorityDiversity(tasks),
		Dependencies: fractionInDependencyEdge(tasks),
	}
}

func fractionWithDescription(tasks []domaintask.Task) float64 {
	n := 0
	for _, t := range tasks {
		if t.HasDescription() {
			n++
		}
	}
	return float64(n) / float64(len(tasks))
}

func fractionWithTwoLabels(tasks []domaintask.Task) float64 {
	n := 0
	for _, t := range tasks {
		if len(t.Labels) >= 2 {
			n++
		}
	}
	return float64(n) / float64(len(tasks))
}

func fractionWithPositiveEstimate(tasks []domaintask.Task) float64 {
	n := 0
	for _, t := range tasks {
		if t.EstimatedHours > 0 {
			n++
		}
	}
	return float64(n) / float64(len(tasks))
}

// priorityDiversity is 1 minus the fraction sharing the modal priority,
// clamped below at 0 (§4.4: "diversity").
func priorityDiversity(tasks []domaintask.Task) float64 {
	counts := make(map[domaintask.Priority]int)
	for _, t := range tasks {
		counts[t.Priority]++
	}
	modal := 0
	for _, c := range counts {
		if c > modal {
			modal = c
		}
	}
	diversity := 1 - float64(modal)/float64(len(tasks))
	if diversity < 0 {
		return 0
	}
	return diversity
}

// fractionInDependencyEdge counts tasks that appear on either side of at
// least one dependency edge.
func fractionInDependencyEdge(tasks []domaintask.Task) float64 {
	inEdge := make(map[string]struct{}, len(tasks)*2)
	for _, t := range tasks {
		if len(t.Dependencies) > 0 {
			inEdge[t.ID] = struct{}{}
		}
		for _, dep := range t.Dependencies {
			inEdge[dep] = struct{}{}
		}
	}
	n := 0
	for _, t := range tasks {
		if _, ok := inEdge[t.ID]; ok {
			n++
		}
	}
	return float64(n) / float64(len(tasks))
}
