// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role distinguishes regular clients from lawyers, who may read any
// client's timeline.
type Role string

const (
	RoleClient Role = "client"
	RoleLawyer Role = "lawyer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleLawyer
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the minimal view of an authenticated user carried on a
// request and inside access tokens.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// IsLawyer reports whether the identity has read access to every timeline.
func (i *Identity) IsLawyer() bool {
	return i != nil && i.Role == RoleLawyer
}
