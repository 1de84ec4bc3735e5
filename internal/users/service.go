package users

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vetnest/vetnest/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns users matching filters plus pagination metadata.
func (s *Service) ListUsers(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PerPage <= 0 || filters.PerPage > 100 {
		filters.PerPage = 20
	}
	list, total, err := s.repo.ListUsers(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// GetUser fetches a single user.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// GetOverview gathers headline counts, fanning the queries out in parallel.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	var overview Overview

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, active, err := s.repo.CountUsers(ctx)
		if err != nil {
			return err
		}
		overview.TotalUsers = total
		overview.ActiveUsers = active
		return nil
	})

	g.Go(func() error {
		count, err := s.repo.CountActiveAssignments(ctx)
		if err != nil {
			return err
		}
		overview.ActiveAssignments = count
		return nil
	})

	g.Go(func() error {
		count, err := s.repo.CountOrganizations(ctx)
		if err != nil {
			return err
		}
		overview.Organizations = count
		return nil
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return overview, nil
}
