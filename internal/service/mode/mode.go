// Package mode implements the ContextDetector/ModeSelector (C5, §4.5): the
// decision table that picks Creator/Enricher/Adaptive from board class plus
// an optional explicit user request. Explicit request always wins.
package mode

import (
	domainproject "github.com/coordinator/agent-board/internal/domain/project"
)

// Select applies the first-matching-row decision table of §4.5. requested is
// the user's explicit mode choice, or "" for none.
func Select(class domainproject.Class, requested domainproject.Mode) domainproject.Mode {
	switch requested {
	case domainproject.ModeCreator, domainproject.ModeEnricher, domainproject.ModeAdaptive:
		return requested
	}

	switch class {
	case domainproject.ClassEmpty:
		return domainproject.ModeCreator
	case domainproject.ClassChaotic, domainproject.ClassBasic:
		return domainproject.ModeEnricher
	default: // good, excellent
		return domainproject.ModeAdaptive
	}
}

// CreatorAllowed reports whether create_project_from_description may run:
// creator-only tools refuse on a non-empty board unless the caller opts in
// via allow_on_nonempty (§4.6).
func CreatorAllowed(taskCount int, allowOnNonEmpty bool) bool {
	return taskCount == 0 || allowOnNonEmpty
}
