package dto

import "time"

// RegisterUserRequest payload.
type RegisterUserRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ConsumerNumber string `json:"consumer_number"`
	Zone           string `json:"zone"`
	Password       string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse carries an issued token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}
