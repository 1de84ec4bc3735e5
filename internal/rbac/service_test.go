package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetnest/vetnest/internal/shared"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	assignments map[uuid.UUID]*Assignment
	roles       map[uuid.UUID]Role

	// Error injection
	fetchError  error
	insertError error
}

func newMockStore() *mockStore {
	return &mockStore{
		assignments: make(map[uuid.UUID]*Assignment),
		roles:       make(map[uuid.UUID]Role),
	}
}

func (m *mockStore) addRole(name string, perms ...string) Role {
	role := Role{ID: uuid.New(), Name: name, DisplayName: name, Permissions: perms}
	m.roles[role.ID] = role
	return role
}

func (m *mockStore) FetchActiveAssignments(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	var out []Assignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.IsActive {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) GetAssignment(ctx context.Context, id uuid.UUID) (Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return *a, nil
}

func (m *mockStore) InsertAssignment(ctx context.Context, params InsertAssignmentParams) (Assignment, error) {
	if m.insertError != nil {
		return Assignment{}, m.insertError
	}
	for _, existing := range m.assignments {
		if existing.IsActive && existing.UserID == params.UserID && existing.RoleID == params.RoleID && sameScope(existing.OrganizationID, params.OrganizationID) {
			return Assignment{}, ErrDuplicateAssignment
		}
	}
	role, ok := m.roles[params.RoleID]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	a := Assignment{
		ID:             uuid.New(),
		UserID:         params.UserID,
		RoleID:         params.RoleID,
		Role:           role,
		OrganizationID: params.OrganizationID,
		IsActive:       true,
		AssignedBy:     params.AssignedBy,
		CreatedAt:      time.Now(),
	}
	if params.OrganizationID != nil {
		a.Organization = &Organization{ID: *params.OrganizationID, Name: "Clinic"}
	}
	m.assignments[a.ID] = &a
	return a, nil
}

func (m *mockStore) DeactivateAssignment(ctx context.Context, id uuid.UUID) (bool, error) {
	a, ok := m.assignments[id]
	if !ok || !a.IsActive {
		return false, nil
	}
	a.IsActive = false
	return true, nil
}

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordingNotifier struct {
	granted []Assignment
	revoked []Assignment
	err     error
}

func (n *recordingNotifier) RoleGranted(ctx context.Context, a Assignment) error {
	n.granted = append(n.granted, a)
	return n.err
}

func (n *recordingNotifier) RoleRevoked(ctx context.Context, a Assignment) error {
	n.revoked = append(n.revoked, a)
	return n.err
}

func newTestService(store *mockStore) (*Service, *recordingAudit, *recordingNotifier) {
	audit := &recordingAudit{}
	notifier := &recordingNotifier{}
	logger := slog.New(slog.DiscardHandler)
	return NewService(store, audit, notifier, logger), audit, notifier
}

// ============================================================================
// RESOLVER
// ============================================================================

func TestResolverLoadUnauthenticated(t *testing.T) {
	resolver := NewResolver(newMockStore(), slog.New(slog.DiscardHandler))

	_, err := resolver.Load(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	snap := resolver.LoadOrEmpty(context.Background(), uuid.Nil)
	assert.Zero(t, snap.Len())
}

func TestResolverLoadFailClosed(t *testing.T) {
	store := newMockStore()
	store.fetchError = errors.New("connection refused")
	resolver := NewResolver(store, slog.New(slog.DiscardHandler))

	_, err := resolver.Load(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrResolutionFailed)

	// LoadOrEmpty swallows the failure and every check evaluates false.
	snap := resolver.LoadOrEmpty(context.Background(), uuid.New())
	assert.False(t, snap.HasPermission(PermManageSales, uuid.Nil))
	assert.False(t, snap.IsSuperAdmin())
}

func TestResolverLoadsAllScopesInOnePass(t *testing.T) {
	store := newMockStore()
	service, _, _ := newTestService(store)
	resolver := NewResolver(store, slog.New(slog.DiscardHandler))

	actor := uuid.New()
	user := uuid.New()
	sales := store.addRole(RoleSales, PermManageSales)
	vet := store.addRole(RoleVetSupport, PermManageMedicalRecords)

	_, err := service.AssignRole(context.Background(), actor, user, vet.ID, nil)
	require.NoError(t, err)
	_, err = service.AssignRole(context.Background(), actor, user, sales.ID, &orgOne)
	require.NoError(t, err)

	snap, err := resolver.Load(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.True(t, snap.HasRole(RoleSales, orgOne))
	assert.True(t, snap.HasRole(RoleVetSupport, uuid.Nil))
}

// ============================================================================
// SERVICE
// ============================================================================

func TestAssignRoleVisibleAfterRefresh(t *testing.T) {
	store := newMockStore()
	service, audit, notifier := newTestService(store)
	resolver := NewResolver(store, slog.New(slog.DiscardHandler))

	actor := uuid.New()
	user := uuid.New()
	sales := store.addRole(RoleSales, PermManageSales)

	before, err := resolver.Load(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, before.HasRole(RoleSales, orgOne))

	assignment, err := service.AssignRole(context.Background(), actor, user, sales.ID, &orgOne)
	require.NoError(t, err)
	assert.Equal(t, actor, assignment.AssignedBy)
	assert.Equal(t, RoleSales, assignment.Role.Name)
	require.NotNil(t, assignment.Organization)

	// The held snapshot is stale until the caller re-resolves.
	assert.False(t, before.HasRole(RoleSales, orgOne))

	after, err := resolver.Load(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, after.HasRole(RoleSales, orgOne))
	assert.True(t, after.HasPermission(PermManageSales, orgOne))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "rbac.assign", audit.logs[0].Action)
	require.Len(t, notifier.granted, 1)
}

func TestAssignRoleDuplicate(t *testing.T) {
	store := newMockStore()
	service, _, _ := newTestService(store)

	actor := uuid.New()
	user := uuid.New()
	sales := store.addRole(RoleSales, PermManageSales)

	_, err := service.AssignRole(context.Background(), actor, user, sales.ID, &orgOne)
	require.NoError(t, err)

	_, err = service.AssignRole(context.Background(), actor, user, sales.ID, &orgOne)
	assert.ErrorIs(t, err, ErrDuplicateAssignment)

	// The same role in a different organization is a distinct grant.
	_, err = service.AssignRole(context.Background(), actor, user, sales.ID, &orgTwo)
	assert.NoError(t, err)

	// And so is a global grant of that role.
	_, err = service.AssignRole(context.Background(), actor, user, sales.ID, nil)
	assert.NoError(t, err)
}

func TestAssignRoleRequiresActor(t *testing.T) {
	store := newMockStore()
	service, _, _ := newTestService(store)
	sales := store.addRole(RoleSales, PermManageSales)

	_, err := service.AssignRole(context.Background(), uuid.Nil, uuid.New(), sales.ID, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRevokeRoleRemovesPermissions(t *testing.T) {
	store := newMockStore()
	service, audit, notifier := newTestService(store)
	resolver := NewResolver(store, slog.New(slog.DiscardHandler))

	actor := uuid.New()
	user := uuid.New()
	sales := store.addRole(RoleSales, PermManageSales)
	vet := store.addRole(RoleVetSupport, PermManageMedicalRecords)

	salesAssignment, err := service.AssignRole(context.Background(), actor, user, sales.ID, &orgOne)
	require.NoError(t, err)
	_, err = service.AssignRole(context.Background(), actor, user, vet.ID, nil)
	require.NoError(t, err)

	require.NoError(t, service.RevokeRole(context.Background(), actor, salesAssignment.ID))

	snap, err := resolver.Load(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, snap.HasRole(RoleSales, orgOne))
	assert.False(t, snap.HasPermission(PermManageSales, uuid.Nil))
	// Grants from the surviving assignment are untouched.
	assert.True(t, snap.HasPermission(PermManageMedicalRecords, uuid.Nil))

	require.Len(t, audit.logs, 3)
	assert.Equal(t, "rbac.revoke", audit.logs[2].Action)
	require.Len(t, notifier.revoked, 1)
	assert.Equal(t, salesAssignment.ID, notifier.revoked[0].ID)

	// Soft delete: the row survives, inactive.
	revoked, err := store.GetAssignment(context.Background(), salesAssignment.ID)
	require.NoError(t, err)
	assert.False(t, revoked.IsActive)
}

func TestRevokeRedundantGrantKeepsPermission(t *testing.T) {
	store := newMockStore()
	service, _, _ := newTestService(store)
	resolver := NewResolver(store, slog.New(slog.DiscardHandler))

	actor := uuid.New()
	user := uuid.New()
	sales := store.addRole(RoleSales, PermManageSales)
	reseller := store.addRole("reseller", PermManageSales)

	_, err := service.AssignRole(context.Background(), actor, user, sales.ID, &orgOne)
	require.NoError(t, err)
	drop, err := service.AssignRole(context.Background(), actor, user, reseller.ID, &orgOne)
	require.NoError(t, err)

	require.NoError(t, service.RevokeRole(context.Background(), actor, drop.ID))

	snap, err := resolver.Load(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, snap.HasPermission(PermManageSales, orgOne), "permission granted redundantly must survive")
}

func TestRevokeRoleNotFound(t *testing.T) {
	store := newMockStore()
	service, _, _ := newTestService(store)

	err := service.RevokeRole(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeRoleTwice(t *testing.T) {
	store := newMockStore()
	service, _, _ := newTestService(store)

	actor := uuid.New()
	sales := store.addRole(RoleSales, PermManageSales)
	assignment, err := service.AssignRole(context.Background(), actor, uuid.New(), sales.ID, nil)
	require.NoError(t, err)

	require.NoError(t, service.RevokeRole(context.Background(), actor, assignment.ID))
	assert.ErrorIs(t, service.RevokeRole(context.Background(), actor, assignment.ID), ErrNotFound)
}

func TestMutationFailurePropagates(t *testing.T) {
	store := newMockStore()
	service, audit, _ := newTestService(store)
	sales := store.addRole(RoleSales, PermManageSales)
	store.insertError = errors.New("connection reset")

	_, err := service.AssignRole(context.Background(), uuid.New(), uuid.New(), sales.ID, nil)
	require.Error(t, err)
	assert.Empty(t, audit.logs)
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	store := newMockStore()
	service, _, notifier := newTestService(store)
	notifier.err = errors.New("queue unavailable")
	sales := store.addRole(RoleSales, PermManageSales)

	_, err := service.AssignRole(context.Background(), uuid.New(), uuid.New(), sales.ID, nil)
	assert.NoError(t, err)
}
