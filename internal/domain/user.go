package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive              UserStatus = "ACTIVE"
	UserStatusPendingVerification UserStatus = "PENDING_VERIFICATION"
	UserStatusSuspended           UserStatus = "SUSPENDED"
)

// User is any account: customers and staff alike. Role is fixed at creation.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may hold a session.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusPendingVerification, UserStatusSuspended:
		return true
	}
	return false
}
