package rbac

import (
	"slices"

	"github.com/google/uuid"
)

// Evaluator methods answer permission and role questions against a held
// snapshot. All of them are pure, never raise, and fail closed: an empty
// snapshot yields false for every check.
//
// Organization scoping differs between permission and role checks, and the
// asymmetry is deliberate:
//
//   - HasPermission with orgID == uuid.Nil applies no organization filter,
//     so organization-scoped assignments still contribute to the union.
//     With a concrete orgID, only global assignments and assignments scoped
//     to that organization count.
//   - HasRole with orgID == uuid.Nil matches global assignments only; a
//     role held solely inside some organization does not make the user that
//     role everywhere.

// HasPermission reports whether any in-scope assignment carries perm.
// Permission strings compare exactly, case-sensitive.
func (s Snapshot) HasPermission(perm string, orgID uuid.UUID) bool {
	if perm == "" {
		return false
	}
	for _, a := range s.assignments {
		if !a.InScope(orgID) {
			continue
		}
		if slices.Contains(a.Role.Permissions, perm) {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of perms is granted.
func (s Snapshot) HasAnyPermission(orgID uuid.UUID, perms ...string) bool {
	for _, p := range perms {
		if s.HasPermission(p, orgID) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of perms is granted. An empty
// requirement list is vacuously satisfied.
func (s Snapshot) HasAllPermissions(orgID uuid.UUID, perms ...string) bool {
	for _, p := range perms {
		if !s.HasPermission(p, orgID) {
			return false
		}
	}
	return true
}

// HasRole reports whether the user holds the named role under strict
// scoping: with a concrete orgID the assignment must be scoped to exactly
// that organization, and with uuid.Nil the assignment must be global.
func (s Snapshot) HasRole(name string, orgID uuid.UUID) bool {
	if name == "" {
		return false
	}
	for _, a := range s.assignments {
		if a.Role.Name != name {
			continue
		}
		if orgID == uuid.Nil {
			if a.OrganizationID == nil {
				return true
			}
			continue
		}
		if a.OrganizationID != nil && *a.OrganizationID == orgID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of the named roles.
func (s Snapshot) HasAnyRole(orgID uuid.UUID, names ...string) bool {
	for _, n := range names {
		if s.HasRole(n, orgID) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports a global super_admin assignment.
func (s Snapshot) IsSuperAdmin() bool {
	return s.HasRole(RoleSuperAdmin, uuid.Nil)
}

// IsAdmin reports an admin assignment in the given scope.
func (s Snapshot) IsAdmin(orgID uuid.UUID) bool {
	return s.HasRole(RoleAdmin, orgID)
}

// IsVetSupport reports a vet_support assignment in the given scope.
func (s Snapshot) IsVetSupport(orgID uuid.UUID) bool {
	return s.HasRole(RoleVetSupport, orgID)
}

// IsSales reports a sales assignment in the given scope.
func (s Snapshot) IsSales(orgID uuid.UUID) bool {
	return s.HasRole(RoleSales, orgID)
}

// CanManageOrganizations reports the global organization management grant.
func (s Snapshot) CanManageOrganizations() bool {
	return s.HasPermission(PermManageOrganizations, uuid.Nil)
}

// CanManageUsers approximates "can manage users" as the union of the global
// manage grant and the organization-scoped create grant. The two permission
// names are deliberately different actions bundled together.
func (s Snapshot) CanManageUsers(orgID uuid.UUID) bool {
	return s.HasAnyPermission(orgID, PermManageUsersGlobal, PermCreateOrgUsers)
}

// CanManageProducts reports the product management grant in scope.
func (s Snapshot) CanManageProducts(orgID uuid.UUID) bool {
	return s.HasPermission(PermManageProducts, orgID)
}

// CanManageSales reports the sales management grant in scope.
func (s Snapshot) CanManageSales(orgID uuid.UUID) bool {
	return s.HasPermission(PermManageSales, orgID)
}

// CanManageMedicalRecords reports the medical record management grant in scope.
func (s Snapshot) CanManageMedicalRecords(orgID uuid.UUID) bool {
	return s.HasPermission(PermManageMedicalRecords, orgID)
}
