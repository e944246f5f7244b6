// Package validation checks and normalizes raw credential input.
//
// Checks run in a fixed order: every presence check, then format checks,
// then cross-field checks. Uniqueness is left to the caller. Failures are
// INVALID_ARGUMENT errors carrying the offending field in their context.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

const (
	MsgEmailRequired        = "Email is required"
	MsgInvalidEmail         = "Invalid email format"
	MsgPasswordRequired     = "Password is required"
	MsgPasswordComplexity   = "Password does not meet complexity requirements"
	MsgConfirmationRequired = "Password confirmation is required"
	MsgPasswordMismatch     = "Password and password confirmation do not match"
	MsgLoginRequired        = "Email and password are required"
	MsgNewPasswordRequired  = "newPassword is required"
	MsgNewConfirmRequired   = "passwordConfirmation is required"
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 8

// PasswordSymbols is the punctuation set a password must draw at least one
// character from.
const PasswordSymbols = `!@#$%^&*()_+{}[]:;<>,.?/~\-`

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	symbolRe  = regexp.MustCompile(`[!@#$%^&*()_+{}\[\]:;<>,.?/~\\-]`)
	lineBreak = regexp.MustCompile(`[\n\r\x{2028}\x{2029}]`)
)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmail reports whether email has the local@domain.tld shape.
func IsEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsStrongPassword reports whether password satisfies the complexity rules.
func IsStrongPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength &&
		!lineBreak.MatchString(password) &&
		lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		symbolRe.MatchString(password)
}

func invalid(field, msg string) error {
	return common.InvalidArgument(msg, "field", field)
}

// ValidateEmail normalizes email and checks presence and format.
func ValidateEmail(email string) (string, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", invalid("email", MsgEmailRequired)
	}
	if !IsEmail(normalized) {
		return "", invalid("email", MsgInvalidEmail)
	}
	return normalized, nil
}

// ValidateSignup checks signup input and returns the normalized email.
func ValidateSignup(email, password, confirmation string) (string, error) {
	normalized := NormalizeEmail(email)

	switch {
	case normalized == "":
		return "", invalid("email", MsgEmailRequired)
	case password == "":
		return "", invalid("password", MsgPasswordRequired)
	case confirmation == "":
		return "", invalid("passwordConfirmation", MsgConfirmationRequired)
	}

	if !IsEmail(normalized) {
		return "", invalid("email", MsgInvalidEmail)
	}
	if !IsStrongPassword(password) {
		return "", invalid("password", MsgPasswordComplexity)
	}

	if password != confirmation {
		return "", invalid("passwordConfirmation", MsgPasswordMismatch)
	}

	return normalized, nil
}

// ValidateLogin checks login input and returns the normalized email.
// Password complexity is not checked at login.
func ValidateLogin(email, password string) (string, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		field := "email"
		if normalized != "" {
			field = "password"
		}
		return "", invalid(field, MsgLoginRequired)
	}
	if !IsEmail(normalized) {
		return "", invalid("email", MsgInvalidEmail)
	}
	return normalized, nil
}

// ValidateNewPassword checks a replacement password and its confirmation.
func ValidateNewPassword(password, confirmation string) error {
	switch {
	case password == "":
		return invalid("newPassword", MsgNewPasswordRequired)
	case confirmation == "":
		return invalid("passwordConfirmation", MsgNewConfirmRequired)
	}
	if !IsStrongPassword(password) {
		return invalid("newPassword", MsgPasswordComplexity)
	}
	if password != confirmation {
		return invalid("passwordConfirmation", MsgPasswordMismatch)
	}
	return nil
}
