// Package codes persists one-time verification codes.
package codes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores verification codes. Codes are never deleted; redemption
// flips the used flag.
type Repository interface {
	// Lock serialises issuance for one (user, purpose) pair until the
	// surrounding transaction ends.
	Lock(ctx context.Context, userID string, purpose models.CodePurpose) error

	Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error)

	// FindActive returns the newest unused code for (user, purpose) that
	// expires after now, or common.ErrorNotFound.
	FindActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.VerificationCode, error)

	// FindUnused returns the newest unused code matching (user, code, purpose)
	// regardless of expiry, or common.ErrorNotFound.
	FindUnused(ctx context.Context, userID, code string, purpose models.CodePurpose) (*models.VerificationCode, error)

	// MarkUsed flips used on an unused code. A code that is already used
	// yields common.ErrorNotFound.
	MarkUsed(ctx context.Context, id string) error
}
