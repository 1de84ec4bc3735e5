package roles

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a role definition in the catalog.
type Role struct {
	ID           uuid.UUID
	Name         string
	DisplayName  string
	Description  string
	IsSystemRole bool
	Permissions  []Permission
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permission is a named capability that can be attached to roles.
type Permission struct {
	ID          uuid.UUID
	Name        string
	Description string
}
