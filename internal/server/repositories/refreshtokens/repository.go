// Package refreshtokens declares the server-side repository contract for
// refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens. Revocation keeps
// the row and records the successor token, if any.
type Repository interface {
	// Create stores a new refresh token and fills its ID and CreatedAt.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindActive looks up an unrevoked token expiring after now by its
	// opaque token string. Absent or inactive tokens yield common.ErrorNotFound.
	FindActive(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error)

	// FindActiveByUserID lists the unrevoked, unexpired tokens of a user,
	// newest first.
	FindActiveByUserID(ctx context.Context, userID string, now time.Time) ([]*models.RefreshToken, error)

	// Revoke marks a token revoked at now, recording replacedBy when the
	// token is being rotated. Revoking an already revoked or unknown token
	// yields common.ErrorNotFound.
	Revoke(ctx context.Context, id string, replacedBy *string, now time.Time) error

	// RevokeAllForUser revokes every active token of a user and reports how
	// many were revoked.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)
}
