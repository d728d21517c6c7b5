package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the account a session token is issued for. The username becomes the token subject.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}
