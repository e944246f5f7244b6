package models

import "time"

// CodePurpose tells what a one-time code may be redeemed for.
type CodePurpose string

const (
	PurposeSignup        CodePurpose = "SIGNUP"
	PurposePasswordReset CodePurpose = "PASSWORD_RESET"
)

// Valid reports whether p is a known purpose.
func (p CodePurpose) Valid() bool {
	return p == PurposeSignup || p == PurposePasswordReset
}

// VerificationCode is a short one-time code bound to a user and a purpose.
type VerificationCode struct {
	ID        string
	Code      string
	UserID    string
	Purpose   CodePurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// ActiveAt reports whether the code is unused and unexpired at now.
func (c *VerificationCode) ActiveAt(now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now)
}
