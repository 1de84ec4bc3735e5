package rbac

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orgOne = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	orgTwo = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func makeAssignment(roleName string, perms []string, orgID *uuid.UUID, createdAt time.Time) Assignment {
	a := Assignment{
		ID:     uuid.New(),
		UserID: uuid.New(),
		RoleID: uuid.New(),
		Role: Role{
			Name:        roleName,
			DisplayName: roleName,
			Permissions: perms,
		},
		OrganizationID: orgID,
		IsActive:       true,
		CreatedAt:      createdAt,
	}
	a.Role.ID = a.RoleID
	if orgID != nil {
		a.Organization = &Organization{ID: *orgID, Name: "Clinic"}
	}
	return a
}

// One global vet_support grant and one sales grant scoped to a single
// organization.
func mixedScopeSnapshot() Snapshot {
	now := time.Now()
	return NewSnapshot([]Assignment{
		makeAssignment(RoleVetSupport, []string{PermManageMedicalRecords}, nil, now.Add(-time.Hour)),
		makeAssignment(RoleSales, []string{PermManageSales}, &orgOne, now),
	})
}

func TestHasPermissionUnion(t *testing.T) {
	snap := mixedScopeSnapshot()

	// No organization filter: org-scoped grants still contribute.
	assert.True(t, snap.HasPermission(PermManageSales, uuid.Nil))
	assert.True(t, snap.HasPermission(PermManageMedicalRecords, uuid.Nil))

	// Organization filter: global grants always count, scoped grants only
	// for a matching organization.
	assert.True(t, snap.HasPermission(PermManageSales, orgOne))
	assert.False(t, snap.HasPermission(PermManageSales, orgTwo))
	assert.True(t, snap.HasPermission(PermManageMedicalRecords, orgTwo))

	assert.False(t, snap.HasPermission(PermManageProducts, uuid.Nil))
	assert.False(t, snap.HasPermission("", uuid.Nil))
}

func TestHasPermissionCaseSensitive(t *testing.T) {
	snap := mixedScopeSnapshot()
	assert.False(t, snap.HasPermission("Sales:Manage:Organization", orgOne))
	assert.False(t, snap.HasPermission("sales:manage", orgOne))
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	snap := mixedScopeSnapshot()

	assert.True(t, snap.HasAnyPermission(uuid.Nil, PermManageProducts, PermManageSales))
	assert.False(t, snap.HasAnyPermission(uuid.Nil, PermManageProducts, PermManageOrganizations))

	assert.True(t, snap.HasAllPermissions(uuid.Nil, PermManageSales, PermManageMedicalRecords))
	assert.False(t, snap.HasAllPermissions(orgTwo, PermManageSales, PermManageMedicalRecords))
	assert.True(t, snap.HasAllPermissions(uuid.Nil))
}

func TestHasRoleStrictScoping(t *testing.T) {
	snap := mixedScopeSnapshot()

	// Org given: assignment must be scoped to exactly that org.
	assert.True(t, snap.HasRole(RoleSales, orgOne))
	assert.False(t, snap.HasRole(RoleSales, orgTwo))

	// No org given: only a global assignment qualifies. The sales role is
	// held only inside orgOne, so it does not count globally even though
	// its permission still unions in.
	assert.False(t, snap.HasRole(RoleSales, uuid.Nil))
	assert.True(t, snap.HasPermission(PermManageSales, uuid.Nil))

	assert.True(t, snap.HasRole(RoleVetSupport, uuid.Nil))
	assert.False(t, snap.HasRole(RoleVetSupport, orgOne))
	assert.False(t, snap.HasRole("", uuid.Nil))
}

func TestHasAnyRole(t *testing.T) {
	snap := mixedScopeSnapshot()
	assert.True(t, snap.HasAnyRole(uuid.Nil, RoleAdmin, RoleVetSupport))
	assert.False(t, snap.HasAnyRole(uuid.Nil, RoleAdmin, RoleSales))
	assert.True(t, snap.HasAnyRole(orgOne, RoleAdmin, RoleSales))
}

func TestNamedPredicates(t *testing.T) {
	snap := mixedScopeSnapshot()
	assert.True(t, snap.IsVetSupport(uuid.Nil))
	assert.True(t, snap.IsSales(orgOne))
	assert.False(t, snap.IsSales(uuid.Nil))
	assert.False(t, snap.IsSuperAdmin())
	assert.False(t, snap.IsAdmin(uuid.Nil))
}

func TestDomainPredicates(t *testing.T) {
	now := time.Now()
	snap := NewSnapshot([]Assignment{
		makeAssignment(RoleAdmin, []string{PermCreateOrgUsers, PermManageProducts}, &orgOne, now),
	})

	assert.True(t, snap.CanManageUsers(orgOne))
	assert.True(t, snap.CanManageUsers(uuid.Nil))
	assert.False(t, snap.CanManageUsers(orgTwo))
	assert.True(t, snap.CanManageProducts(orgOne))
	assert.False(t, snap.CanManageProducts(orgTwo))
	assert.False(t, snap.CanManageOrganizations())
	assert.False(t, snap.CanManageSales(orgOne))
	assert.False(t, snap.CanManageMedicalRecords(orgOne))

	super := NewSnapshot([]Assignment{
		makeAssignment(RoleSuperAdmin, []string{PermManageOrganizations, PermManageUsersGlobal}, nil, now),
	})
	assert.True(t, super.CanManageOrganizations())
	assert.True(t, super.CanManageUsers(uuid.Nil))
	assert.True(t, super.CanManageUsers(orgTwo))
}

func TestFailClosedOnEmptySnapshot(t *testing.T) {
	var snap Snapshot

	assert.False(t, snap.HasPermission(PermManageSales, uuid.Nil))
	assert.False(t, snap.HasAnyPermission(uuid.Nil, PermManageSales, PermManageProducts))
	assert.False(t, snap.HasRole(RoleAdmin, uuid.Nil))
	assert.False(t, snap.HasAnyRole(uuid.Nil, RoleAdmin, RoleSales))
	assert.False(t, snap.IsSuperAdmin())
	assert.False(t, snap.CanManageOrganizations())
	assert.False(t, snap.CanManageUsers(orgOne))
	assert.False(t, snap.CanManageMedicalRecords(orgOne))
	assert.Nil(t, snap.PrimaryRole())
	assert.Empty(t, snap.Permissions(uuid.Nil))
}

func TestPredicateIdempotence(t *testing.T) {
	snap := mixedScopeSnapshot()
	for i := 0; i < 3; i++ {
		assert.True(t, snap.HasPermission(PermManageSales, uuid.Nil))
		assert.False(t, snap.HasRole(RoleSales, uuid.Nil))
		assert.Equal(t, snap.Permissions(uuid.Nil), snap.Permissions(uuid.Nil))
	}
}

func TestPrimaryRoleOrdering(t *testing.T) {
	now := time.Now()
	older := makeAssignment(RoleVetSupport, []string{PermManageMedicalRecords}, nil, now.Add(-2*time.Hour))
	newest := makeAssignment(RoleSales, []string{PermManageSales}, &orgOne, now)

	// Input order must not matter.
	forward := NewSnapshot([]Assignment{older, newest})
	backward := NewSnapshot([]Assignment{newest, older})

	require.NotNil(t, forward.PrimaryRole())
	assert.Equal(t, newest.ID, forward.PrimaryRole().ID)
	assert.Equal(t, newest.ID, backward.PrimaryRole().ID)
}

func TestSnapshotIsolation(t *testing.T) {
	source := []Assignment{
		makeAssignment(RoleSales, []string{PermManageSales}, &orgOne, time.Now()),
	}
	snap := NewSnapshot(source)

	// Mutating the source slice after construction must not leak in.
	source[0].Role.Name = RoleAdmin
	assert.True(t, snap.HasRole(RoleSales, orgOne))

	// Nor may callers mutate the snapshot through its accessor.
	out := snap.Assignments()
	out[0].Role.Name = RoleAdmin
	assert.True(t, snap.HasRole(RoleSales, orgOne))
}

func TestPermissionsUnion(t *testing.T) {
	snap := mixedScopeSnapshot()
	assert.Equal(t, []string{PermManageMedicalRecords, PermManageSales}, snap.Permissions(uuid.Nil))
	assert.Equal(t, []string{PermManageMedicalRecords}, snap.Permissions(orgTwo))
}
