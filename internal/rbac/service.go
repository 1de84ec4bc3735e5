package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vetnest/vetnest/internal/shared"
)

// Store defines persistence operations for role assignments.
type Store interface {
	AssignmentSource
	GetAssignment(ctx context.Context, id uuid.UUID) (Assignment, error)
	InsertAssignment(ctx context.Context, params InsertAssignmentParams) (Assignment, error)
	DeactivateAssignment(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier receives role-change events after a successful mutation.
// Delivery is best effort; failures never roll the mutation back.
type Notifier interface {
	RoleGranted(ctx context.Context, a Assignment) error
	RoleRevoked(ctx context.Context, a Assignment) error
}

// AuditRecorder persists audit entries for role mutations.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service performs role assignment mutations. Authorization of the acting
/// user happens at the route layer, not here: the service records who acted
// but does not decide whether they were allowed to.
type Service struct {
	store    Store
	audit    AuditRecorder
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, audit AuditRecorder, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, audit: audit, notifier: notifier, logger: logger}
}

// AssignRole grants roleID to userID, optionally scoped to an organization,
// recording actorID as the grantor. Returns the new assignment joined with
// its role and organization. The caller's held snapshot is not touched;
// the grant becomes visible on its next resolution.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID uuid.UUID, organizationID *uuid.UUID) (Assignment, error) {
	if actorID == uuid.Nil {
		return Assignment{}, ErrUnauthenticated
	}
	if userID == uuid.Nil || roleID == uuid.Nil {
		return Assignment{}, errors.New("rbac: user and role required")
	}
	assignment, err := s.store.InsertAssignment(ctx, InsertAssignmentParams{
		UserID:         userID,
		RoleID:         roleID,
		OrganizationID: organizationID,
		AssignedBy:     actorID,
	})
	if err != nil {
		return Assignment{}, err
	}
	s.recordAudit(ctx, actorID, "rbac.assign", assignment)
	if s.notifier != nil {
		if err := s.notifier.RoleGranted(ctx, assignment); err != nil && s.logger != nil {
			s.logger.Warn("notify role granted", slog.Any("error", err))
		}
	}
	return assignment, nil
}

// RevokeRole deactivates an assignment. Revocation is a soft delete: the
// row stays for audit history with is_active false, and the read path
// ignores it from then on. Revoking an unknown or already revoked
// assignment yields ErrNotFound.
func (s *Service) RevokeRole(ctx context.Context, actorID, assignmentID uuid.UUID) error {
	if actorID == uuid.Nil {
		return ErrUnauthenticated
	}
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !assignment.IsActive {
		return ErrNotFound
	}
	revoked, err := s.store.DeactivateAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrNotFound
	}
	s.recordAudit(ctx, actorID, "rbac.revoke", assignment)
	if s.notifier != nil {
		if err := s.notifier.RoleRevoked(ctx, assignment); err != nil && s.logger != nil {
			s.logger.Warn("notify role revoked", slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, a Assignment) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"user_id": a.UserID.String(),
		"role":    a.Role.Name,
	}
	if a.OrganizationID != nil {
		meta["organization_id"] = a.OrganizationID.String()
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user_role",
		EntityID: a.ID.String(),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("record rbac audit", slog.Any("error", err))
	}
}
