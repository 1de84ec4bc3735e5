package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assignmentColumns = `
	ura.id, ura.user_id, ura.role_id, ura.organization_id, ura.is_active, ura.assigned_by, ura.created_at,
	r.name, r.display_name, r.description, r.is_system_role, r.created_at, r.updated_at,
	COALESCE(ARRAY_AGG(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}'),
	o.name`

const assignmentJoins = `
	FROM user_roles ura
	JOIN roles r ON r.id = ura.role_id
	LEFT JOIN role_permissions rp ON rp.role_id = r.id
	LEFT JOIN permissions p ON p.id = rp.permission_id
	LEFT JOIN organizations o ON o.id = ura.organization_id`

const assignmentGroupBy = `
	GROUP BY ura.id, ura.user_id, ura.role_id, ura.organization_id, ura.is_active, ura.assigned_by, ura.created_at,
	r.name, r.display_name, r.description, r.is_system_role, r.created_at, r.updated_at, o.name`

// FetchActiveAssignments returns all active assignments for a user, each
// joined with its role (including the aggregated permission set) and, when
// scoped, its organization. Most recent assignment first.
func (r *Repository) FetchActiveAssignments(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	query := `SELECT` + assignmentColumns + assignmentJoins + `
	WHERE ura.user_id = $1 AND ura.is_active = TRUE` + assignmentGroupBy + `
	ORDER BY ura.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// GetAssignment fetches one assignment by ID regardless of active state.
func (r *Repository) GetAssignment(ctx context.Context, id uuid.UUID) (Assignment, error) {
	query := `SELECT` + assignmentColumns + assignmentJoins + `
	WHERE ura.id = $1` + assignmentGroupBy
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return Assignment{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Assignment{}, err
		}
		return Assignment{}, ErrNotFound
	}
	return scanAssignment(rows)
}

// InsertAssignmentParams carries the fields required to grant a role.
type InsertAssignmentParams struct {
	UserID         uuid.UUID
	RoleID         uuid.UUID
	OrganizationID *uuid.UUID
	AssignedBy     uuid.UUID
}

// InsertAssignment grants a role and returns the new assignment joined with
// role and organization. A user cannot hold the same role twice in the same
// scope while both grants are active.
func (r *Repository) InsertAssignment(ctx context.Context, params InsertAssignmentParams) (Assignment, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_roles (id, user_id, role_id, organization_id, assigned_by, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		 RETURNING id`,
		uuid.New(), params.UserID, params.RoleID, params.OrganizationID, params.AssignedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Assignment{}, ErrDuplicateAssignment
		}
		return Assignment{}, err
	}
	return r.GetAssignment(ctx, id)
}

// DeactivateAssignment revokes an assignment by setting is_active false.
// Returns false when no active assignment matched.
func (r *Repository) DeactivateAssignment(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_roles SET is_active = FALSE, revoked_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PurgeRevoked hard-deletes assignments revoked longer than retention ago.
func (r *Repository) PurgeRevoked(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_roles WHERE is_active = FALSE AND revoked_at < NOW() - $1::interval`,
		pgtype.Interval{Microseconds: retention.Microseconds(), Valid: true})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAssignment(rows pgx.Rows) (Assignment, error) {
	var (
		a         Assignment
		orgID     uuid.NullUUID
		orgName   pgtype.Text
		createdAt pgtype.Timestamptz
		roleCrt   pgtype.Timestamptz
		roleUpd   pgtype.Timestamptz
	)
	err := rows.Scan(
		&a.ID, &a.UserID, &a.RoleID, &orgID, &a.IsActive, &a.AssignedBy, &createdAt,
		&a.Role.Name, &a.Role.DisplayName, &a.Role.Description, &a.Role.IsSystemRole, &roleCrt, &roleUpd,
		&a.Role.Permissions,
		&orgName,
	)
	if err != nil {
		return Assignment{}, err
	}
	a.Role.ID = a.RoleID
	a.CreatedAt = createdAt.Time
	a.Role.CreatedAt = roleCrt.Time
	a.Role.UpdatedAt = roleUpd.Time
	if orgID.Valid {
		id := orgID.UUID
		a.OrganizationID = &id
		a.Organization = &Organization{ID: id, Name: orgName.String}
	}
	return a, nil
}
