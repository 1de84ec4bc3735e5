package orgs

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/vetnest/vetnest/internal/shared"
)

var (
	// ErrNotFound indicates the organization does not exist.
	ErrNotFound = errors.New("orgs: not found")
	// ErrDuplicateName indicates the organization name is already taken.
	ErrDuplicateName = errors.New("orgs: name already taken")
	// ErrNameRequired indicates a create or update without a name.
	ErrNameRequired = errors.New("orgs: name required")
)

// Service handles organization business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns organizations matching filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Organization, shared.Pagination, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PerPage <= 0 || filters.PerPage > 100 {
		filters.PerPage = 20
	}
	orgs, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orgs, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches a single organization.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new organization.
func (s *Service) Create(ctx context.Context, org Organization) (Organization, error) {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return Organization{}, ErrNameRequired
	}
	org.Address = strings.TrimSpace(org.Address)
	org.Phone = strings.TrimSpace(org.Phone)
	return s.repo.Create(ctx, org)
}

// Update changes organization details.
func (s *Service) Update(ctx context.Context, id uuid.UUID, org Organization) (Organization, error) {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return Organization{}, ErrNameRequired
	}
	org.Address = strings.TrimSpace(org.Address)
	org.Phone = strings.TrimSpace(org.Phone)
	return s.repo.Update(ctx, id, org)
}

// Deactivate retires an organization without touching its assignment history.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}
