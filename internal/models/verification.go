package models

import "time"

const (
	PurposeResetPassword     = "reset-password"
	PurposeEmailVerification = "email-verification"
)

// Verification is a single-use credential. Value holds the SHA-256 hex digest
// of the token handed to the user, never the token itself.
type Verification struct {
	ID         string
	Identifier string
	Purpose    string
	Value      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
