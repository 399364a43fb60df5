package domain

import "time"

// Seeded role names. Names are stored without the ROLE_ prefix.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// DefaultRole is granted to every newly registered user.
const DefaultRole = RoleUser

type Role struct {
	ID          string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
