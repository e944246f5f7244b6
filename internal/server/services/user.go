package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100

	MsgBodyRequired = "Request body is required."
)

type CreateUserInput struct {
	Email    string
	Password string
	Role     models.Role
	Verified bool
}

// UpdateUserInput is a partial update; nil fields stay unchanged.
type UpdateUserInput struct {
	Email    *string
	Password *string
	Role     *models.Role
	Verified *bool
}

// UserService is the administrative CRUD over user accounts.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher) *UserService {
	return &UserService{db: db, repomanager: m, hasher: hasher}
}

func validateID(id string) error {
	if id == "" {
		return common.InvalidArgument("ID is required", "field", "id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return common.InvalidArgument("Invalid ID format", "field", "id")
	}
	return nil
}

func validateRole(role models.Role) error {
	if !role.Valid() {
		return common.InvalidArgument("Invalid role", "field", "role")
	}
	return nil
}

func emailExists() error {
	return common.NewError(common.CodeAlreadyExists, "Email already exists", "field", "email")
}

func userNotFound(id string) error {
	return common.NotFound(common.MsgUserNotFound, "id", id)
}

// Create stores a new account. Role defaults to USER.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" {
		return nil, common.InvalidArgument("Email is required to create a user", "field", "email")
	}
	if !validation.IsEmail(email) {
		return nil, common.InvalidArgument(validation.MsgInvalidEmail, "field", "email")
	}
	if in.Password == "" {
		return nil, common.InvalidArgument(validation.MsgPasswordRequired, "field", "password")
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, emailExists()
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.Infra("users.get_by_email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, common.Infra("password.hash", err)
	}

	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash, Role: role, Verified: in.Verified})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, emailExists()
		}
		return nil, common.Infra("users.create", err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, userNotFound(id)
		}
		return nil, common.Infra("users.get_by_id", err)
	}
	return user, nil
}

// List pages through users in creation order. A non-positive limit selects
// DefaultListLimit; limits above MaxListLimit are capped.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if offset < 0 {
		return nil, common.InvalidArgument("offset must not be negative", "field", "offset")
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	users, err := s.repomanager.Users(s.db).List(ctx, limit, offset)
	if err != nil {
		return nil, common.Infra("users.list", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// Update applies a partial update. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var patch models.UserPatch

	if in.Email != nil {
		email, err := validation.ValidateEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, common.InvalidArgument(validation.MsgPasswordRequired, "field", "password")
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, common.Infra("password.hash", err)
		}
		patch.PasswordHash = &hash
	}
	if in.Role != nil {
		if err := validateRole(*in.Role); err != nil {
			return nil, err
		}
		patch.Role = in.Role
	}
	patch.Verified = in.Verified

	if patch.Empty() {
		return nil, common.InvalidArgument(MsgBodyRequired)
	}

	user, err := s.repomanager.Users(s.db).UpdateByID(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, userNotFound(id)
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, emailExists()
		}
		return nil, common.Infra("users.update", err)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).DeleteByID(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return userNotFound(id)
		}
		return common.Infra("users.delete", err)
	}
	return nil
}
