package domain

import "time"

// UserStatus represents lifecycle states for a consumer account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for consumers who raise grievance tickets.
type User struct {
	ID             string
	Name           string
	Email          string
	ConsumerNumber string
	Zone           string
	PasswordHash   string
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
