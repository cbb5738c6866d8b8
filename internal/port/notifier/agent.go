package notifier

import "context"

// AgentNotifier pushes a best-effort hint to a specific agent's active session —
// e.g. "new work may be available" after a sweep. The agent still must call
// request_next_task to actually claim anything; this never bypasses the pull model.
type AgentNotifier interface {
	NotifyAgent(ctx context.Context, agentID string, event any) error
}
