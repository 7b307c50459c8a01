package domain

import "time"

// AuthResult is what a successful login or refresh returns: the identity and
// both tokens. On refresh the refresh token echoes the submitted one.
type AuthResult struct {
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken models the stored refresh token record in the DB.
// There is at most one live row per user; saving a new token for the same
// user replaces the old one.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
