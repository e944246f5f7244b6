package codes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var codeCols = []string{"id", "code", "user_id", "purpose", "expires_at", "used", "created_at"}

func TestLock(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^SELECT\s+pg_advisory_xact_lock\(hashtext\(\$1\)\)$`).
		WithArgs("u-1:SIGNUP").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Lock(context.Background(), "u-1", models.PurposeSignup))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	exp := time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
	created := exp.Add(-time.Hour)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+verification_codes\s*\(code,\s*user_id,\s*purpose,\s*expires_at\).*RETURNING\s+id,\s*created_at`).
		WithArgs("ABC123", "u-1", "SIGNUP", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("c-1", created))

	got, err := repo.Create(context.Background(), &models.VerificationCode{
		Code: "ABC123", UserID: "u-1", Purpose: models.PurposeSignup, ExpiresAt: exp,
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", got.ID)
	assert.Equal(t, created, got.CreatedAt)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+verification_codes`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.VerificationCode{Purpose: models.PurposeSignup})
	require.ErrorContains(t, err, "db error: db down")
}

func TestFindActive(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	q := `(?s)^SELECT\s+id,.*FROM\s+verification_codes\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+NOT\s+used\s+AND\s+expires_at\s*>\s*\$3`

	mock.ExpectQuery(q).
		WithArgs("u-1", "PASSWORD_RESET", now).
		WillReturnRows(sqlmock.NewRows(codeCols).AddRow("c-1", "XYZ789", "u-1", "PASSWORD_RESET", now.Add(time.Hour), false, now))
	mock.ExpectQuery(q).
		WithArgs("u-2", "SIGNUP", now).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.FindActive(context.Background(), "u-1", models.PurposePasswordReset, now)
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", got.Code)
	assert.Equal(t, models.PurposePasswordReset, got.Purpose)

	_, err = repo.FindActive(context.Background(), "u-2", models.PurposeSignup, now)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindUnused(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	q := `(?s)^SELECT\s+id,.*WHERE\s+user_id\s*=\s*\$1\s+AND\s+code\s*=\s*\$2\s+AND\s+purpose\s*=\s*\$3\s+AND\s+NOT\s+used`

	mock.ExpectQuery(q).
		WithArgs("u-1", "ABC123", "SIGNUP").
		WillReturnRows(sqlmock.NewRows(codeCols).AddRow("c-1", "ABC123", "u-1", "SIGNUP", now, false, now))
	mock.ExpectQuery(q).
		WithArgs("u-1", "NOPE00", "SIGNUP").
		WillReturnError(errors.New("conn reset"))

	got, err := repo.FindUnused(context.Background(), "u-1", "ABC123", models.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "c-1", got.ID)

	_, err = repo.FindUnused(context.Background(), "u-1", "NOPE00", models.PurposeSignup)
	require.ErrorContains(t, err, "db error")
}

func TestMarkUsed(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `^UPDATE\s+verification_codes\s+SET\s+used\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+NOT\s+used$`
	mock.ExpectExec(q).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkUsed(context.Background(), "c-1"))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), "c-1"), common.ErrorNotFound, "second redemption must not succeed")
}
