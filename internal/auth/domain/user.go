package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string
	FirstName    string
	LastName     string
	Enabled      bool
	Roles        []string // role names, unprefixed
	Permissions  []string // union of the roles' permissions
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}
