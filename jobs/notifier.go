package jobs

import (
	"context"
	"log/slog"

	"github.com/vetnest/vetnest/internal/rbac"
)

// AccessNotifier publishes role-change events onto the job queue so the
// worker can deliver notifications out of band.
type AccessNotifier struct {
	client *Client
	logger *slog.Logger
}

// NewAccessNotifier constructs an AccessNotifier.
func NewAccessNotifier(client *Client, logger *slog.Logger) *AccessNotifier {
	return &AccessNotifier{client: client, logger: logger}
}

// RoleGranted enqueues a notification for a new role assignment.
func (n *AccessNotifier) RoleGranted(ctx context.Context, a rbac.Assignment) error {
	return n.enqueue(ctx, "granted", a)
}

// RoleRevoked enqueues a notification for a revoked role assignment.
func (n *AccessNotifier) RoleRevoked(ctx context.Context, a rbac.Assignment) error {
	return n.enqueue(ctx, "revoked", a)
}

func (n *AccessNotifier) enqueue(ctx context.Context, action string, a rbac.Assignment) error {
	payload := AccessChangedPayload{
		Action:   action,
		UserID:   a.UserID.String(),
		RoleName: a.Role.Name,
		ActorID:  a.AssignedBy.String(),
	}
	if a.Organization != nil {
		payload.Organization = a.Organization.Name
	}
	info, err := n.client.EnqueueAccessChanged(ctx, payload)
	if err != nil {
		return err
	}
	if n.logger != nil {
		n.logger.Debug("access change enqueued",
			slog.String("task_id", info.ID),
			slog.String("action", action),
			slog.String("user_id", payload.UserID))
	}
	return nil
}
