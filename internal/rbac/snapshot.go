package rbac

import (
	"sort"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of a user's active assignments, ordered by
// creation time descending. Callers own their snapshot: it never refreshes
// itself, and all evaluator methods are pure reads, so concurrent checks
// against one snapshot are safe. After granting or revoking a role the
// caller re-resolves to observe the change.
type Snapshot struct {
	assignments []Assignment
}

// NewSnapshot builds a snapshot from the given assignments. The slice is
// copied and ordered by CreatedAt descending so PrimaryRole selection is
// deterministic regardless of input order.
func NewSnapshot(assignments []Assignment) Snapshot {
	owned := make([]Assignment, len(assignments))
	copy(owned, assignments)
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	return Snapshot{assignments: owned}
}

// Assignments returns the ordered assignment list.
func (s Snapshot) Assignments() []Assignment {
	out := make([]Assignment, len(s.assignments))
	copy(out, s.assignments)
	return out
}

// Len returns the number of assignments held.
func (s Snapshot) Len() int {
	return len(s.assignments)
}

// PrimaryRole returns the most recently created assignment, or nil when the
// snapshot is empty. "Primary" is a presentation convention, not a stored
// attribute.
func (s Snapshot) PrimaryRole() *Assignment {
	if len(s.assignments) == 0 {
		return nil
	}
	first := s.assignments[0]
	return &first
}

// Permissions returns the effective permission set: the sorted union of
// permissions across all assignments in scope for orgID (uuid.Nil applies
// no organization filter).
func (s Snapshot) Permissions(orgID uuid.UUID) []string {
	seen := make(map[string]struct{})
	for _, a := range s.assignments {
		if !a.InScope(orgID) {
			continue
		}
		for _, p := range a.Role.Permissions {
			seen[p] = struct{}{}
		}
	}
	perms := make([]string, 0, len(seen))
	for p := range seen {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}
