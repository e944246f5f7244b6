package memory

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) emailTaken(email, exceptID string) bool {
	for id, u := range r.s.users {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(user.Email, "") {
		return nil, common.ErrorAlreadyExists
	}

	now := r.s.stamp()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	r.s.users[user.ID] = copyUser(user)
	r.s.userOrder = append(r.s.userOrder, user.ID)
	return user, nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) UpdateByID(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if patch.Email != nil && r.emailTaken(*patch.Email, id) {
		return nil, common.ErrorAlreadyExists
	}

	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Verified != nil {
		u.Verified = *patch.Verified
	}
	u.UpdatedAt = r.s.stamp()

	return copyUser(u), nil
}

func (r *userRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	for i, uid := range r.s.userOrder {
		if uid == id {
			r.s.userOrder = append(r.s.userOrder[:i], r.s.userOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (r *userRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.User{}
	for i := offset; i < len(r.s.userOrder) && len(out) < limit; i++ {
		out = append(out, copyUser(r.s.users[r.s.userOrder[i]]))
	}
	return out, nil
}
