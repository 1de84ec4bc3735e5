package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	users       []User
	lastFilters ListFilters
	countErr    error
}

func (m *mockRepo) ListUsers(ctx context.Context, filters ListFilters) ([]User, int, error) {
	m.lastFilters = filters
	return m.users, len(m.users), nil
}

func (m *mockRepo) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, errors.New("not found")
}

func (m *mockRepo) CountUsers(ctx context.Context) (int, int, error) {
	if m.countErr != nil {
		return 0, 0, m.countErr
	}
	active := 0
	for _, u := range m.users {
		if u.IsActive {
			active++
		}
	}
	return len(m.users), active, nil
}

func (m *mockRepo) CountActiveAssignments(ctx context.Context) (int, error) {
	return 7, nil
}

func (m *mockRepo) CountOrganizations(ctx context.Context) (int, error) {
	return 3, nil
}

func TestListUsersClampsPagination(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	_, pagination, err := svc.ListUsers(context.Background(), ListFilters{Page: 0, PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastFilters.Page)
	assert.Equal(t, 20, repo.lastFilters.PerPage)
	assert.Equal(t, 20, pagination.PerPage)
}

func TestGetOverviewAggregates(t *testing.T) {
	repo := &mockRepo{users: []User{
		{ID: uuid.New(), IsActive: true},
		{ID: uuid.New(), IsActive: true},
		{ID: uuid.New(), IsActive: false},
	}}
	svc := NewService(repo)

	overview, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalUsers)
	assert.Equal(t, 2, overview.ActiveUsers)
	assert.Equal(t, 7, overview.ActiveAssignments)
	assert.Equal(t, 3, overview.Organizations)
}

func TestGetOverviewPropagatesError(t *testing.T) {
	repo := &mockRepo{countErr: errors.New("db down")}
	svc := NewService(repo)

	_, err := svc.GetOverview(context.Background())
	require.Error(t, err)
}
