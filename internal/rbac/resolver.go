package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrUnauthenticated indicates a resolution attempt without a caller identity.
	ErrUnauthenticated = errors.New("rbac: unauthenticated")
	// ErrResolutionFailed wraps store failures during assignment resolution.
	ErrResolutionFailed = errors.New("rbac: resolution failed")
	// ErrDuplicateAssignment indicates the user already holds the role in that scope.
	ErrDuplicateAssignment = errors.New("rbac: duplicate assignment")
)

// AssignmentSource is the read side of the assignment store.
type AssignmentSource interface {
	FetchActiveAssignments(ctx context.Context, userID uuid.UUID) ([]Assignment, error)
}

// Resolver loads a user's active assignments into a Snapshot. It performs
// no caching and no retries: every Load is a fresh fetch, and callers hold
// the result until they choose to re-resolve.
type Resolver struct {
	source AssignmentSource
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(source AssignmentSource, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Load fetches all of the user's active assignments, global and
// organization-scoped alike, in one pass. Scoping happens at evaluation
// time, never at fetch time. A missing identity yields ErrUnauthenticated;
// store failures yield ErrResolutionFailed.
func (r *Resolver) Load(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	if userID == uuid.Nil {
		return Snapshot{}, ErrUnauthenticated
	}
	assignments, err := r.source.FetchActiveAssignments(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	return NewSnapshot(assignments), nil
}

// LoadOrEmpty resolves fail-closed: any error is logged and swallowed, and
// the empty snapshot comes back, so every subsequent permission check
// evaluates to false. A user whose permissions failed to load behaves
// exactly like a user with zero permissions.
func (r *Resolver) LoadOrEmpty(ctx context.Context, userID uuid.UUID) Snapshot {
	snap, err := r.Load(ctx, userID)
	if err != nil {
		if r.logger != nil && !errors.Is(err, ErrUnauthenticated) {
			r.logger.Error("rbac resolve", slog.String("user_id", userID.String()), slog.Any("error", err))
		}
		return Snapshot{}
	}
	return snap
}
