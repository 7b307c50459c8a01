package domain

import "time"

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash string // argon2 encoded
	Country      string // optional, free-form
	Enabled      bool   // false until email verification completes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
