package domain

import "time"

// VerificationToken is a single-use email verification record. The raw token
// is only ever held by the registrant; the DB stores its fingerprint.
type VerificationToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
}
