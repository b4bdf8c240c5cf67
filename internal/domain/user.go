package domain

import "time"

// Role decides which lifecycle actions a user may perform.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// User is an actor that files or works tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   Department
	Avatar       string
	CreatedAt    time.Time
}
