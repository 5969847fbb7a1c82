package domain

import "time"

// RoleAdmin is the only role marker the service issues inside access tokens.
const RoleAdmin = "admin"

// User mirrors the persisted representation in the users table.
type User struct {
	ID        int64
	Name      string
	Email     string
	Admin     bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersistedCredential is the derived password record stored alongside a user.
// Salt and Hash are hex encoded; Iterations records the KDF cost used at
// derivation time so existing records survive a cost change.
type PersistedCredential struct {
	Salt       string
	Hash       string
	Iterations int
}

// Role returns the role marker to embed in tokens, empty for regular users.
func (u User) Role() string {
	if u.Admin {
		return RoleAdmin
	}
	return ""
}
