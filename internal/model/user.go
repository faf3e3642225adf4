package model

import (
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
)

// User is a staff member who can log in.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     *string   `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var roleLevels = map[string]int{
	RoleAdmin:   3,
	RoleManager: 2,
	RoleStaff:   1,
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	have, ok := roleLevels[role]
	if !ok {
		return false
	}
	need, ok := roleLevels[minimum]
	if !ok {
		return false
	}
	return have >= need
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// NewUser holds the fields required to create a user.
type NewUser struct {
	Email    string
	Username string
	Password string
	Name     string
	Role     string
}

// Validate checks the new user's fields.
func (n NewUser) Validate() error {
	if strings.TrimSpace(n.Email) == "" || strings.TrimSpace(n.Name) == "" || n.Password == "" || n.Role == "" {
		return apperr.Validation("email, password, name and role required")
	}
	if err := ValidateEmail(n.Email); err != nil {
		return err
	}
	if !ValidRole(n.Role) {
		return apperr.Validation("invalid role")
	}
	return ValidatePassword(n.Password)
}

// UserUpdate is a partial update of a user record. Nil fields are left
// unchanged. An empty Username clears it.
type UserUpdate struct {
	Email    *string
	Username *string
	Name     *string
	Role     *string
	IsActive *bool
}

// Validate checks every set field.
func (u UserUpdate) Validate() error {
	if u.Email != nil {
		if err := ValidateEmail(*u.Email); err != nil {
			return err
		}
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return apperr.Validation("name cannot be empty")
	}
	if u.Role != nil && !ValidRole(*u.Role) {
		return apperr.Validation("invalid role")
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.Name == nil && u.Role == nil && u.IsActive == nil
}
