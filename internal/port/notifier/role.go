package notifier

import "context"

// RoleNotifier broadcasts a hint to every connected agent of a given role.
// [ISP] Separated from AgentNotifier — callers declare only what they use.
type RoleNotifier interface {
	NotifyRole(ctx context.Context, role string, event any) error
}
