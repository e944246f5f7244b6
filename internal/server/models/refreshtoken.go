package models

import "time"

// RefreshToken is the server-side record of an issued refresh token.
// Records are revoked, never deleted.
type RefreshToken struct {
	ID              string
	UserID          string
	Token           string
	ExpiresAt       time.Time
	RevokedAt       *time.Time
	ReplacedByToken *string
	CreatedAt       time.Time
}

// ActiveAt reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) ActiveAt(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
