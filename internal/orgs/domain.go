package orgs

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a clinic or hospital that scopes role assignments.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilters controls organization listing.
type ListFilters struct {
	Search  string
	Page    int
	PerPage int
}
