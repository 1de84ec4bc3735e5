package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a staff account visible to administrators.
type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilters controls user listing.
type ListFilters struct {
	Search  string
	Page    int
	PerPage int
}

// Overview aggregates headline numbers for the admin dashboard.
type Overview struct {
	TotalUsers        int
	ActiveUsers       int
	ActiveAssignments int
	Organizations     int
}
