package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type codeRepo struct {
	s *Store
}

// Lock is a no-op. Each call takes the store mutex on its own, so issuance
// is not serialised across a FindActive/Create pair: concurrent Generate
// calls for the same (user, purpose) may both insert.
func (r *codeRepo) Lock(context.Context, string, models.CodePurpose) error { return nil }

func (r *codeRepo) Create(_ context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code.ID = uuid.NewString()
	code.CreatedAt = r.s.stamp()
	c := *code
	r.s.codes = append(r.s.codes, &c)
	return code, nil
}

// newest walks codes newest first and returns a copy of the first match.
func (r *codeRepo) newest(match func(*models.VerificationCode) bool) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := len(r.s.codes) - 1; i >= 0; i-- {
		if c := r.s.codes[i]; match(c) {
			out := *c
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *codeRepo) FindActive(_ context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.VerificationCode, error) {
	return r.newest(func(c *models.VerificationCode) bool {
		return c.UserID == userID && c.Purpose == purpose && c.ActiveAt(now)
	})
}

func (r *codeRepo) FindUnused(_ context.Context, userID, code string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	return r.newest(func(c *models.VerificationCode) bool {
		return c.UserID == userID && c.Code == code && c.Purpose == purpose && !c.Used
	})
}

func (r *codeRepo) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.codes {
		if c.ID == id && !c.Used {
			c.Used = true
			return nil
		}
	}
	return common.ErrorNotFound
}
