package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repomanager.RepositoryManager = (*Store)(nil)

func TestUsers_UniqueEmailAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewStore(nil).Users(nil)

	a, err := repo.Create(ctx, &models.User{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, a.Role)

	_, err = repo.Create(ctx, &models.User{Email: "a@x.com"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	b, err := repo.Create(ctx, &models.User{Email: "b@x.com"})
	require.NoError(t, err)

	email := "b@x.com"
	_, err = repo.UpdateByID(ctx, a.ID, models.UserPatch{Email: &email})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	list, err := repo.List(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	require.NoError(t, repo.DeleteByID(ctx, a.ID))
	require.ErrorIs(t, repo.DeleteByID(ctx, a.ID), common.ErrorNotFound)
	_, err = repo.GetByID(ctx, a.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCodes_MarkUsedOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewStore(func() time.Time { return now }).Codes(nil)

	c, err := repo.Create(ctx, &models.VerificationCode{Code: "ABC123", UserID: "u", Purpose: models.PurposeSignup, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	found, err := repo.FindActive(ctx, "u", models.PurposeSignup, now)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	require.NoError(t, repo.MarkUsed(ctx, c.ID))
	require.ErrorIs(t, repo.MarkUsed(ctx, c.ID), common.ErrorNotFound)

	_, err = repo.FindUnused(ctx, "u", "ABC123", models.PurposeSignup)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

// Lock does not serialise issuance in memory: a second Lock on the same
// pair returns at once and nothing stops a second insert.
func TestCodes_LockDoesNotSerialise(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(func() time.Time { return now })
	repo := store.Codes(nil)

	require.NoError(t, repo.Lock(ctx, "u", models.PurposeSignup))

	locked := make(chan error, 1)
	go func() { locked <- repo.Lock(ctx, "u", models.PurposeSignup) }()
	select {
	case err := <-locked:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second Lock blocked")
	}

	for range 2 {
		_, err := repo.Create(ctx, &models.VerificationCode{Code: "ABC123", UserID: "u", Purpose: models.PurposeSignup, ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)
	}
	assert.Len(t, store.CodesFor("u"), 2)
}

func TestRefreshTokens_RevokeRecordsSuccessor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(func() time.Time { return now })
	repo := s.RefreshTokens(nil)

	tok := &models.RefreshToken{UserID: "u", Token: "old", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, tok))

	next := "new"
	require.NoError(t, repo.Revoke(ctx, tok.ID, &next, now))
	require.ErrorIs(t, repo.Revoke(ctx, tok.ID, nil, now), common.ErrorNotFound)

	_, err := repo.FindActive(ctx, "old", now)
	require.ErrorIs(t, err, common.ErrorNotFound)

	stored := s.TokensFor("u")
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].ReplacedByToken)
	assert.Equal(t, "new", *stored[0].ReplacedByToken)
}
