package model

import "time"

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries a freshly minted bearer token.
type LoginResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresIn int64      `json:"expires_in"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      PublicUser `json:"user"`
}

// Identity describes the caller of GET /api/auth/me.
type Identity struct {
	Username    string     `json:"username"`
	Role        Role       `json:"role"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AuthEnabled bool       `json:"auth_enabled"`
}

// ChangePasswordRequest is the body of POST /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// UpdateUserRequest is the body of PATCH /api/users/{username}.
type UpdateUserRequest struct {
	Active *bool `json:"active"`
}

// UserList is returned by GET /api/users.
type UserList struct {
	Users []PublicUser `json:"users"`
	Total int          `json:"total"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
