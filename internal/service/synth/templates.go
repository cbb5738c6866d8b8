// Built-in template library used when AIClient.parse_prd/synthesize_tasks is
// unavailable (§4.6 step 1-2). Templates are plain Go literals rather than
// files on disk — the set is small, fixed, and versioned with the binary.
package synth

import (
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portai "github.com/coordinator/agent-board/internal/port/ai"
)

// template is a keyword-scored, deterministically-expandable project shape.
type template struct {
	name     string
	keywords []string
	// tasks returns the template's task plan at the given complexity. Entries
	// reference each other by TempID; DependsOn edges are the template's own
	// idea of ordering and are still re-checked by the safety package.
	tasks func(complexity string, techStack []string) []portai.PlannedTask
}

var templates = []template{
	webAppTemplate,
	apiServiceTemplate,
	cliTemplate,
	dataPipelineTemplate,
}

// defaultTemplateName is used when no template scores above the threshold (§4.6).
const defaultTemplateName = "web-app"

const templateScoreThreshold = 0.3

// matchTemplate scores description against every template's keyword list and
// returns the best match, or the default template if none clears the
// threshold.
func matchTemplate(description string) template {
	best := webAppTemplate
	bestScore := 0.0
	for _, tmpl := range templates {
		score := keywordScore(description, tmpl.keywords)
		if score > bestScore {
			bestScore = score
			best = tmpl
		}
	}
	if bestScore <= templateScoreThreshold {
		for _, tmpl := range templates {
			if tmpl.name == defaultTemplateName {
				return tmpl
			}
		}
	}
	return best
}

func keywordScore(text string, keywords []string) float64 {
	haystack := normalizeForMatch(text)
	hits := 0
	for _, k := range keywords {
		if containsWord(haystack, k) {
			hits++
		}
	}
	if len(keywords) == 0 {
		return 0
	}
	return float64(hits) / float64(len(keywords))
}

func skillLabelsFor(techStack []string) []string {
	labels := make([]string, 0, len(techStack))
	for _, s := range techStack {
		labels = append(labels, domaintask.NamespaceSkill+s)
	}
	return labels
}

var webAppTemplate = template{
	name:     "web-app",
	keywords: []string{"web", "app", "ui", "frontend", "website", "dashboard", "react", "page"},
	tasks: func(complexity string, techStack []string) []portai.PlannedTask {
		skills := skillLabelsFor(techStack)
		tasks := []portai.PlannedTask{
			{TempID: "setup-repo", Title: "Set up project repository and CI", Description: "Initialize the repository, base project structure, and continuous integration pipeline.", Labels: append([]string{"component:infra"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 3, Phase: domaintask.PhaseSetup},
			{TempID: "design-schema", Title: "Design data model", Description: "Define the core entities and their relationships for the application.", Labels: []string{"component:db"}, Priority: domaintask.PriorityHigh, EstimatedHours: 4, Phase: domaintask.PhaseDesign, DependsOn: []string{"setup-repo"}},
			{TempID: "design-ui", Title: "Design UI wireframes", Description: "Sketch the primary screens and user flows for the application.", Labels: []string{"component:ui"}, Priority: domaintask.PriorityMedium, EstimatedHours: 4, Phase: domaintask.PhaseDesign, DependsOn: []string{"setup-repo"}},
			{TempID: "impl-api", Title: "Implement REST API endpoints", Description: "Build the backend endpoints for core application actions.", Labels: append([]string{"component:api"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 10, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-schema"}},
			{TempID: "impl-auth", Title: "Implement authentication", Description: "Build login, session handling, and JWT-based authentication.", Labels: append([]string{"component:auth"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 8, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-schema"}},
			{TempID: "impl-ui", Title: "Implement web UI", Description: "Build the frontend screens defined in the wireframes.", Labels: append([]string{"component:ui"}, skills...), Priority: domaintask.PriorityMedium, EstimatedHours: 10, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-ui", "impl-api"}},
			{TempID: "test-api", Title: "Test API endpoints", Description: "Write integration tests covering the REST API.", Labels: []string{"component:api"}, Priority: domaintask.PriorityMedium, EstimatedHours: 5, Phase: domaintask.PhaseTesting, DependsOn: []string{"impl-api", "impl-auth"}},
			{TempID: "test-ui", Title: "Test UI flows", Description: "Write end-to-end tests covering the primary user flows.", Labels: []string{"component:ui"}, Priority: domaintask.PriorityMedium, EstimatedHours: 5, Phase: domaintask.PhaseTesting, DependsOn: []string{"impl-ui"}},
			{TempID: "deploy", Title: "Deploy to production", Description: "Release the application to its production environment.", Labels: []string{"component:infra"}, Priority: domaintask.PriorityUrgent, EstimatedHours: 3, Phase: domaintask.PhaseDeployment, DependsOn: []string{"test-api", "test-ui"}},
		}
		if complexity == "enterprise" {
			tasks = append(tasks,
				portai.PlannedTask{TempID: "impl-rbac", Title: "Implement role-based access control", Description: "Build fine-grained permissioning on top of authentication.", Labels: append([]string{"component:auth"}, skills...), Priority: domaintask.PriorityMedium, EstimatedHours: 6, Phase: domaintask.PhaseImplementation, DependsOn: []string{"impl-auth"}},
				portai.PlannedTask{TempID: "test-rbac", Title: "Test access control rules", Description: "Write tests covering the permission matrix.", Labels: []string{"component:auth"}, Priority: domaintask.PriorityMedium, EstimatedHours: 3, Phase: domaintask.PhaseTesting, DependsOn: []string{"impl-rbac"}},
			)
		}
		if complexity == "mvp" {
			tasks = dropByTempID(tasks, "test-ui")
		}
		return tasks
	},
}

var apiServiceTemplate = template{
	name:     "api-service",
	keywords: []string{"api", "service", "backend", "microservice", "rest", "grpc", "endpoint"},
	tasks: func(complexity string, techStack []string) []portai.PlannedTask {
		skills := skillLabelsFor(techStack)
		tasks := []portai.PlannedTask{
			{TempID: "setup-repo", Title: "Set up service repository and CI", Description: "Initialize the repository, base project layout, and continuous integration.", Labels: append([]string{"component:infra"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 2, Phase: domaintask.PhaseSetup},
			{TempID: "design-contract", Title: "Design API contract", Description: "Define request/response schemas and error semantics for every endpoint.", Labels: []string{"component:api"}, Priority: domaintask.PriorityHigh, EstimatedHours: 3, Phase: domaintask.PhaseDesign, DependsOn: []string{"setup-repo"}},
			{TempID: "impl-core", Title: "Implement core service logic", Description: "Build the primary business logic behind the API contract.", Labels: append([]string{"component:api"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 12, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-contract"}},
			{TempID: "impl-persistence", Title: "Implement persistence layer", Description: "Wire the service to its backing datastore.", Labels: []string{"component:db"}, Priority: domaintask.PriorityHigh, EstimatedHours: 6, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-contract"}},
			{TempID: "test-contract", Title: "Test API contract compliance", Description: "Write contract tests covering every documented endpoint.", Labels: []string{"component:api"}, Priority: domaintask.PriorityMedium, EstimatedHours: 6, Phase: domaintask.PhaseTesting, DependsOn: []string{"impl-core", "impl-persistence"}},
			{TempID: "deploy", Title: "Deploy service to production", Description: "Release the service to its production environment.", Labels: []string{"component:infra"}, Priority: domaintask.PriorityUrgent, EstimatedHours: 2, Phase: domaintask.PhaseDeployment, DependsOn: []string{"test-contract"}},
		}
		if complexity == "enterprise" {
			tasks = append(tasks, portai.PlannedTask{TempID: "impl-ratelimit", Title: "Implement rate limiting", Description: "Add per-client rate limits to protect the service.", Labels: append([]string{"component:api"}, skills...), Priority: domaintask.PriorityMedium, EstimatedHours: 4, Phase: domaintask.PhaseImplementation, DependsOn: []string{"impl-core"}})
		}
		return tasks
	},
}

var cliTemplate = template{
	name:     "cli",
	keywords: []string{"cli", "command", "terminal", "tool", "script", "binary"},
	tasks: func(complexity string, techStack []string) []portai.PlannedTask {
		skills := skillLabelsFor(techStack)
		return []portai.PlannedTask{
			{TempID: "setup-repo", Title: "Set up CLI project scaffold", Description: "Initialize the repository and command-line argument scaffold.", Labels: append([]string{"component:cli"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 2, Phase: domaintask.PhaseSetup},
			{TempID: "design-commands", Title: "Design command surface", Description: "Define the subcommands, flags, and output formats the tool exposes.", Labels: []string{"component:cli"}, Priority: domaintask.PriorityMedium, EstimatedHours: 2, Phase: domaintask.PhaseDesign, DependsOn: []string{"setup-repo"}},
			{TempID: "impl-commands", Title: "Implement commands", Description: "Build the core subcommands defined in the design.", Labels: append([]string{"component:cli"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 8, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-commands"}},
			{TempID: "test-commands", Title: "Test command behavior", Description: "Write tests covering each command's inputs and outputs.", Labels: []string{"component:cli"}, Priority: domaintask.PriorityMedium, EstimatedHours: 4, Phase: domaintask.PhaseTesting, DependsOn: []string{"impl-commands"}},
			{TempID: "deploy", Title: "Publish release binaries", Description: "Build and publish release artifacts for the tool.", Labels: []string{"component:infra"}, Priority: domaintask.PriorityUrgent, EstimatedHours: 2, Phase: domaintask.PhaseDeployment, DependsOn: []string{"test-commands"}},
		}
	},
}

var dataPipelineTemplate = template{
	name:     "data-pipeline",
	keywords: []string{"pipeline", "etl", "data", "ingest", "batch", "stream", "warehouse"},
	tasks: func(complexity string, techStack []string) []portai.PlannedTask {
		skills := skillLabelsFor(techStack)
		tasks := []portai.PlannedTask{
			{TempID: "setup-repo", Title: "Set up pipeline project and CI", Description: "Initialize the repository and job orchestration scaffold.", Labels: append([]string{"component:infra"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 3, Phase: domaintask.PhaseSetup},
			{TempID: "design-schema", Title: "Design data schema and flow", Description: "Define source, intermediate, and destination schemas for the pipeline.", Labels: []string{"component:data"}, Priority: domaintask.PriorityHigh, EstimatedHours: 4, Phase: domaintask.PhaseDesign, DependsOn: []string{"setup-repo"}},
			{TempID: "impl-ingest", Title: "Implement ingestion stage", Description: "Build the stage that pulls raw data from its source.", Labels: append([]string{"component:ingest"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 8, Phase: domaintask.PhaseImplementation, DependsOn: []string{"design-schema"}},
			{TempID: "impl-transform", Title: "Implement transform stage", Description: "Build the stage that cleans and reshapes ingested data.", Labels: append([]string{"component:transform"}, skills...), Priority: domaintask.PriorityHigh, EstimatedHours: 8, Phase: domaintask.PhaseImplementation, DependsOn: []string{"impl-ingest"}},
			{TempID: "test-pipeline", Title: "Test end-to-end pipeline run", Description: "Write tests covering a full ingest-transform-load run.", Labels: []string{"component:data"}, Priority: domaintask.PriorityMedium, EstimatedHours: 6, Phase: domaintask.PhaseTesting, DependsOn: []string{"impl-transform"}},
			{TempID: "deploy", Title: "Deploy pipeline to production", Description: "Schedule the pipeline in its production orchestrator.", Labels: []string{"component:infra"}, Priority: domaintask.PriorityUrgent, EstimatedHours: 2, Phase: domaintask.PhaseDeployment, DependsOn: []string{"test-pipeline"}},
		}
		if complexity == "mvp" {
			tasks = dropByTempID(tasks, "test-pipeline")
			for i := range tasks {
				if tasks[i].TempID == "deploy" {
					tasks[i].DependsOn = []string{"impl-transform"}
				}
			}
		}
		return tasks
	},
}

func dropByTempID(tasks []portai.PlannedTask, id string) []portai.PlannedTask {
	out := tasks[:0]
	for _, t := range tasks {
		if t.TempID != id {
			out = append(out, t)
		}
	}
	return out
}
