package models

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// ValidRoles defines the available roles in the system
var ValidRoles = []Role{RoleAdmin, RoleViewer}

// IsValid checks if a role is one of ValidRoles
func (r Role) IsValid() bool {
	for _, valid := range ValidRoles {
		if r == valid {
			return true
		}
	}
	return false
}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// User represents a stored identity
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal returns the session-safe view of the user.
func (u *User) Principal() Principal {
	return Principal{Username: u.Username, Role: u.Role}
}

// Principal is an authenticated identity plus its role. It never carries a password.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CanEdit is the single capability check for creating and editing projects.
// A nil principal cannot edit.
func CanEdit(p *Principal) bool {
	return p != nil && p.Role == RoleAdmin
}

// RegisterRequest represents the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Validate checks the required fields and the role before the request reaches the
// identity gateway.
func (r *RegisterRequest) Validate() error {
	var bad []string
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		bad = append(bad, "username")
	}
	if r.Password == "" {
		bad = append(bad, "password")
	}
	if role, ok := ParseRole(string(r.Role)); ok {
		r.Role = role
	} else {
		bad = append(bad, "role")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned by login and session lookups.
type SessionResponse struct {
	User      Principal `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token,omitempty"`
}
