package domain

import "time"

// Role values assignable to a user. Access control compares against
// these exact strings.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents a platform account. Students, instructors and admins
// share one table and are distinguished by Role. Accounts start
// inactive and are activated by phone OTP verification.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	AvatarURL    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is the persisted half of a token pair. Access tokens are
// stateless; refresh tokens live here so logout can invalidate them.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
