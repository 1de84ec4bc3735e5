package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WindowParams bounds a timeline query.
type WindowParams struct {
	Filters TimelineFilters
	Offset  int
	Limit   int
}

// Repository provides read access to audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, params WindowParams) ([]Entry, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow returns audit entries newest first within the window.
func (r *PGRepository) TimelineWindow(ctx context.Context, params WindowParams) ([]Entry, error) {
	query := `SELECT occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	f := params.Filters
	if !f.From.IsZero() {
		argCount++
		query += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		argCount++
		query += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, f.To)
	}
	if f.ActorID != uuid.Nil {
		argCount++
		query += ` AND actor_id = $` + strconv.Itoa(argCount)
		args = append(args, f.ActorID)
	}
	if f.Entity != "" {
		argCount++
		query += ` AND entity = $` + strconv.Itoa(argCount)
		args = append(args, f.Entity)
	}
	if f.Action != "" {
		argCount++
		query += ` AND action = $` + strconv.Itoa(argCount)
		args = append(args, f.Action)
	}

	query += ` ORDER BY occurred_at DESC`

	if params.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, params.Limit)
	}
	if params.Offset > 0 {
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, params.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var (
			entry      Entry
			occurredAt pgtype.Timestamptz
			metaJSON   []byte
		)
		if err := rows.Scan(&occurredAt, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &metaJSON); err != nil {
			return nil, err
		}
		entry.At = occurredAt.Time
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
