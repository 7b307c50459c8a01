package authsdk

import "github.com/forumstack/auth-service/pkg/jwtx"

// RegisterRequest is the body for POST /auth/register.
// Country is optional; everything else is required.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Country   string `json:"country,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest is the body for POST /auth/authenticate.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body for POST /auth/token/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is returned by authenticate and refresh. On refresh the
// refreshToken field echoes the submitted token unchanged.
type AuthResponse struct {
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MessageResponse is a simple informational response body.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of critical dependencies on /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the public key set served at /.well-known/jwks.json.
type JWKSResponse struct {
	Keys []jwtx.JWK `json:"keys"`
}
