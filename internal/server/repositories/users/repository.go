// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists user accounts. Lookups of absent users return
// common.ErrorNotFound; a duplicate email returns common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}
