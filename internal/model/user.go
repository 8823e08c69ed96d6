package model

import "time"

// Roles recognised by the service.  Members earn and redeem points;
// admins manage the reward catalog and may award points on behalf of
// collaborator services (profile, jobs, reviews).
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// User mirrors the users table.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
