package orgs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	orgs        map[uuid.UUID]Organization
	lastFilters ListFilters
}

func newMockRepo() *mockRepo {
	return &mockRepo{orgs: make(map[uuid.UUID]Organization)}
}

func (m *mockRepo) List(ctx context.Context, filters ListFilters) ([]Organization, int, error) {
	m.lastFilters = filters
	out := make([]Organization, 0, len(m.orgs))
	for _, org := range m.orgs {
		out = append(out, org)
	}
	return out, len(out), nil
}

func (m *mockRepo) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (m *mockRepo) Create(ctx context.Context, org Organization) (Organization, error) {
	org.ID = uuid.New()
	org.IsActive = true
	m.orgs[org.ID] = org
	return org, nil
}

func (m *mockRepo) Update(ctx context.Context, id uuid.UUID, org Organization) (Organization, error) {
	existing, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	existing.Name = org.Name
	existing.Address = org.Address
	existing.Phone = org.Phone
	m.orgs[id] = existing
	return existing, nil
}

func (m *mockRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	existing, ok := m.orgs[id]
	if !ok || !existing.IsActive {
		return ErrNotFound
	}
	existing.IsActive = false
	m.orgs[id] = existing
	return nil
}

func TestListClampsPagination(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_, pagination, err := svc.List(context.Background(), ListFilters{Page: -3, PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastFilters.Page)
	assert.Equal(t, 20, repo.lastFilters.PerPage)
	assert.Equal(t, 1, pagination.Page)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), Organization{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestCreateTrimsFields(t *testing.T) {
	svc := NewService(newMockRepo())

	org, err := svc.Create(context.Background(), Organization{
		Name:    "  Happy Paws Clinic  ",
		Address: " 12 Main St ",
		Phone:   " 555-0100 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy Paws Clinic", org.Name)
	assert.Equal(t, "12 Main St", org.Address)
	assert.Equal(t, "555-0100", org.Phone)
	assert.True(t, org.IsActive)
}

func TestDeactivateTwiceReturnsNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	org, err := svc.Create(context.Background(), Organization{Name: "Happy Paws Clinic"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), org.ID))
	err = svc.Deactivate(context.Background(), org.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
