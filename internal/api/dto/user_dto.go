package dto

import (
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	Department domain.Department `json:"department"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// NewAuthResponse describes a freshly issued bearer token.
func NewAuthResponse(token string, meta domain.Token) AuthResponse {
	return AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: meta.ExpiresAt,
		ExpiresIn: int64(meta.Lifetime() / time.Second),
	}
}

// UserResponse is the public view of a user; the password hash never leaves the service.
type UserResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       domain.Role       `json:"role"`
	Department domain.Department `json:"department"`
	Avatar     string            `json:"avatar"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewUserResponse maps a user.
func NewUserResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
		Avatar:     user.Avatar,
		CreatedAt:  user.CreatedAt,
	}
}
