package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type tokenRepo struct {
	s *Store
}

func (r *tokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = r.s.stamp()
	c := copyToken(token)
	r.s.tokens = append(r.s.tokens, &c)
	return nil
}

func (r *tokenRepo) FindActive(_ context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tokens {
		if t.Token == token && t.ActiveAt(now) {
			c := copyToken(t)
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *tokenRepo) FindActiveByUserID(_ context.Context, userID string, now time.Time) ([]*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.RefreshToken
	for i := len(r.s.tokens) - 1; i >= 0; i-- {
		if t := r.s.tokens[i]; t.UserID == userID && t.ActiveAt(now) {
			c := copyToken(t)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *tokenRepo) Revoke(_ context.Context, id string, replacedBy *string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tokens {
		if t.ID == id && t.RevokedAt == nil {
			at := now
			t.RevokedAt = &at
			if replacedBy != nil {
				rb := *replacedBy
				t.ReplacedByToken = &rb
			}
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *tokenRepo) RevokeAllForUser(_ context.Context, userID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.ActiveAt(now) {
			at := now
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}
