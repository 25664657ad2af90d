package domain

import "time"

// Role enumerates account roles. Roles control authorization only;
// workflow state lives on the ticket.
type Role string

const (
	RoleUser     Role = "USER"
	RoleModel    Role = "MODEL"
	RoleDesigner Role = "DESIGNER"
	RoleAdmin    Role = "ADMIN"
)

// User is the domain model for platform accounts.
//
// ApplicationStatus is a denormalized copy of the primary ticket's review
// status, kept for cheap profile reads. The ticket is the source of truth;
// the mirror is refreshed best-effort on every transition.
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Phone             string
	Role              Role
	MemberID          *string
	ApplicationStatus ApplicationStatus
	Verified          bool
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
