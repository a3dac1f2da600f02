package domain

import "time"

// Operator models utility staff: zone handlers and department heads.
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Zone         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
