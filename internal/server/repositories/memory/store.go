// Package memory is an in-process implementation of the repositories used
// by service and handler tests. Transactions are not emulated: writes made
// inside a rolled back transaction stay visible.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/codes"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// Store holds users, codes and refresh tokens in memory and hands out
// repositories over them. It satisfies repomanager.RepositoryManager.
type Store struct {
	mu  sync.Mutex
	now timex.Clock

	users     map[string]*models.User
	userOrder []string
	codes     []*models.VerificationCode
	tokens    []*models.RefreshToken
}

func NewStore(now timex.Clock) *Store {
	if now == nil {
		now = timex.SystemClock
	}
	return &Store{now: now, users: map[string]*models.User{}}
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *Store) Users(dbx.DBTX) users.Repository { return &userRepo{s: s} }

func (s *Store) Codes(dbx.DBTX) codes.Repository { return &codeRepo{s: s} }

func (s *Store) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return &tokenRepo{s: s} }

// CodesFor returns copies of every code stored for userID, oldest first.
func (s *Store) CodesFor(userID string) []models.VerificationCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.VerificationCode
	for _, c := range s.codes {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out
}

// TokensFor returns copies of every refresh token stored for userID,
// oldest first.
func (s *Store) TokensFor(userID string) []models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, copyToken(t))
		}
	}
	return out
}

func (s *Store) stamp() time.Time { return s.now().UTC() }

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyToken(t *models.RefreshToken) models.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		c.RevokedAt = &at
	}
	if t.ReplacedByToken != nil {
		r := *t.ReplacedByToken
		c.ReplacedByToken = &r
	}
	return c
}
