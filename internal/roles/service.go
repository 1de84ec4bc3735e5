package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the requested role or permission does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrDuplicateName indicates a role with the same name already exists.
	ErrDuplicateName = errors.New("roles: name already taken")
	// ErrSystemRole indicates an attempt to modify a built-in role.
	ErrSystemRole = errors.New("roles: system roles are immutable")
	// ErrNameRequired indicates a create or update without a role name.
	ErrNameRequired = errors.New("roles: role name required")
)

// RepositoryPort defines data access methods for the role catalog.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	CreateRole(ctx context.Context, name, displayName, description string) (Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, name, displayName, description string) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	RolePermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
}

// Service handles role catalog business logic. Built-in system roles can be
// read but never renamed, re-permissioned, or deleted through this service.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new custom role.
func (s *Service) CreateRole(ctx context.Context, name, displayName, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// UpdateRole updates a custom role.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, name, displayName, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if existing.IsSystemRole {
		return Role{}, ErrSystemRole
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// DeleteRole removes a custom role.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystemRole {
		return ErrSystemRole
	}
	return s.repo.DeleteRole(ctx, id)
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// SetRolePermissions replaces the permission set of a custom role. The new
// set is diffed against the current one so unchanged links are untouched.
func (s *Service) SetRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return ErrSystemRole
	}

	current, err := s.repo.RolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[uuid.UUID]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}
