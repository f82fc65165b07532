package model

import (
	"strings"
	"time"
)

// User is the owner of posts and the recipient of notifications.
// Authentication is handled outside this module; only identity and
// contact details are carried here.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Email     string    `json:"email"      db:"email"`
	Username  string    `json:"username"   db:"username"`
	Role      UserRole  `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserRole is an explicit role claim; admin checks consult this field
// rather than comparing identity literals.
type UserRole string

const (
	// UserRoleMember is the default role.
	UserRoleMember UserRole = "member"
	// UserRoleAdmin grants access to aggregate admin views.
	UserRoleAdmin UserRole = "admin"
)

// Valid returns true if the UserRole is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleMember || r == UserRoleAdmin
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// DisplayName returns the username, falling back to the email local part.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
