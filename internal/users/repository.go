package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetnest/vetnest/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filters ListFilters) ([]User, int, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	CountUsers(ctx context.Context) (total int, active int, err error)
	CountActiveAssignments(ctx context.Context) (int, error)
	CountOrganizations(ctx context.Context) (int, error)
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListUsers returns users matching filters plus the total count.
func (r *PGRepository) ListUsers(ctx context.Context, filters ListFilters) ([]User, int, error) {
	query := `SELECT id, email, full_name, is_active, created_at, updated_at FROM users WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (email ILIKE $` + strconv.Itoa(argCount) + ` OR full_name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM users WHERE 1=1`
	countArgs := []interface{}{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (email ILIKE $1 OR full_name ILIKE $1)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY email`

	if filters.PerPage > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.PerPage)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.PerPage
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		var (
			u         User
			createdAt pgtype.Timestamptz
			updatedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, 0, err
		}
		u.CreatedAt = createdAt.Time
		u.UpdatedAt = updatedAt.Time
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// GetUser fetches a user by ID.
func (r *PGRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var (
		u         User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, is_active, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return u, nil
}

// CountUsers returns total and active user counts.
func (r *PGRepository) CountUsers(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM users`).
		Scan(&total, &active)
	return total, active, err
}

// CountActiveAssignments returns the number of live role assignments.
func (r *PGRepository) CountActiveAssignments(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE is_active = TRUE`).Scan(&count)
	return count, err
}

// CountOrganizations returns the number of active organizations.
func (r *PGRepository) CountOrganizations(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM organizations WHERE is_active = TRUE`).Scan(&count)
	return count, err
}

var _ RepositoryPort = (*PGRepository)(nil)
