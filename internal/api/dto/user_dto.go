package dto

import (
	"time"

	"github.com/spec-kit/registration-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public account shape.
type UserResponse struct {
	ID                string                   `json:"id"`
	Name              string                   `json:"name"`
	Email             string                   `json:"email"`
	Phone             string                   `json:"phone,omitempty"`
	Role              domain.Role              `json:"role"`
	MemberID          *string                  `json:"member_id,omitempty"`
	ApplicationStatus domain.ApplicationStatus `json:"application_status"`
	Verified          bool                     `json:"verified"`
}
