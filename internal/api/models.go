package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
)

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT sent back as "Authorization: Bearer <token>"
	AccessToken string `json:"token"`

	// ExpiresAt is the RFC 3339 expiry of AccessToken
	ExpiresAt string `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserResponse copies the public fields of u.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}

// FileResponse describes a stored upload.
type FileResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}
