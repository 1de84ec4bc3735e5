package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Well-known role names. Role definitions live in the roles table; these
// constants only name the system roles the convenience predicates check.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleVetSupport = "vet_support"
	RoleSales      = "sales"
)

// Well-known permission names, namespaced as resource:action:scope.
// Matching is exact and case-sensitive; there is no wildcard or prefix
// expansion.
const (
	PermManageOrganizations  = "organizations:manage:global"
	PermManageUsersGlobal    = "users:manage:global"
	PermCreateOrgUsers       = "users:create:organization"
	PermManageProducts       = "products:manage:organization"
	PermManageSales          = "sales:manage:organization"
	PermManageMedicalRecords = "medical_records:manage:organization"
)

// Role is a named, reusable bundle of permissions.
type Role struct {
	ID           uuid.UUID
	Name         string
	DisplayName  string
	Description  string
	Permissions  []string
	IsSystemRole bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Organization is the scoping entity for non-global grants.
type Organization struct {
	ID   uuid.UUID
	Name string
}

// Assignment is a single grant of one role to one user. A nil
// OrganizationID denotes a global grant applying everywhere; otherwise the
// grant is scoped to that organization only. A user may hold multiple
// assignments simultaneously, including the same role in different
// organizations.
type Assignment struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	RoleID         uuid.UUID
	Role           Role
	OrganizationID *uuid.UUID
	Organization   *Organization
	IsActive       bool
	AssignedBy     uuid.UUID
	CreatedAt      time.Time
}

// Global reports whether the assignment applies everywhere.
func (a Assignment) Global() bool {
	return a.OrganizationID == nil
}

// InScope reports whether the assignment applies within orgID. Global
// assignments are in scope for every organization; uuid.Nil means "no
// organization filter" and matches everything.
func (a Assignment) InScope(orgID uuid.UUID) bool {
	if orgID == uuid.Nil || a.OrganizationID == nil {
		return true
	}
	return *a.OrganizationID == orgID
}
