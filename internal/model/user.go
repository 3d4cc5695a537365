package model

import "time"

// Roles carried in the JWT "role" claim.  STAFF and ADMIN count as
// elevated: they may claim seats in the STAFF room, and ADMIN may
// additionally release any seat and trigger administrative sweeps.
const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// User mirrors the 'users' table.  Passwords are stored only as bcrypt
// hashes.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Elevated reports whether role may access staff-restricted seats.
func Elevated(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}
