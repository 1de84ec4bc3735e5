package orgs

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for organizations.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Organization, int, error)
	Get(ctx context.Context, id uuid.UUID) (Organization, error)
	Create(ctx context.Context, org Organization) (Organization, error)
	Update(ctx context.Context, id uuid.UUID, org Organization) (Organization, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Organization, int, error) {
	query := `SELECT id, name, address, phone, is_active, created_at, updated_at FROM organizations WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM organizations WHERE 1=1`
	countArgs := []interface{}{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND name ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name`

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

	orgs := make([]Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, org)
	}
	return orgs, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, address, phone, is_active, created_at, updated_at
		 FROM organizations WHERE id = $1`, id)
	org, err := scanOrganizationRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	return org, nil
}

func (r *repository) Create(ctx context.Context, org Organization) (Organization, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO organizations (id, name, address, phone, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())`,
		id, org.Name, org.Address, org.Phone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Organization{}, ErrDuplicateName
		}
		return Organization{}, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, org Organization) (Organization, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET name = $2, address = $3, phone = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, org.Name, org.Address, org.Phone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Organization{}, ErrDuplicateName
		}
		return Organization{}, err
	}
	if tag.RowsAffected() == 0 {
		return Organization{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Deactivate flags the organization inactive. Assignments scoped to it stay
// in place so the timeline remains reconstructible.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type orgScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(rows pgx.Rows) (Organization, error) {
	return scanOrganizationRow(rows)
}

func scanOrganizationRow(row orgScanner) (Organization, error) {
	var (
		org       Organization
		address   pgtype.Text
		phone     pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&org.ID, &org.Name, &address, &phone, &org.IsActive, &createdAt, &updatedAt); err != nil {
		return Organization{}, err
	}
	org.Address = address.String
	org.Phone = phone.String
	org.CreatedAt = createdAt.Time
	org.UpdatedAt = updatedAt.Time
	return org, nil
}
