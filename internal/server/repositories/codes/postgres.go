package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const codeColumns = `id, code, user_id, purpose, expires_at, used, created_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanCode(row *sql.Row) (*models.VerificationCode, error) {
	c := &models.VerificationCode{}
	if err := row.Scan(&c.ID, &c.Code, &c.UserID, &c.Purpose, &c.ExpiresAt, &c.Used, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Lock takes a transaction-scoped advisory lock. Outside a transaction it
// is released immediately and has no effect.
func (r *PostgresRepository) Lock(ctx context.Context, userID string, purpose models.CodePurpose) error {
	query := `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := r.db.ExecContext(ctx, query, userID+":"+string(purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	query :=
		`INSERT INTO verification_codes (code, user_id, purpose, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `
	err := r.db.QueryRowContext(ctx, query, code.Code, code.UserID, string(code.Purpose), code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return code, nil
}

func (r *PostgresRepository) FindActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.VerificationCode, error) {
	query :=
		`SELECT ` + codeColumns + `
		 FROM verification_codes
		 WHERE user_id = $1 AND purpose = $2 AND NOT used AND expires_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1`
	return scanCode(r.db.QueryRowContext(ctx, query, userID, string(purpose), now))
}

func (r *PostgresRepository) FindUnused(ctx context.Context, userID, code string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	query :=
		`SELECT ` + codeColumns + `
		 FROM verification_codes
		 WHERE user_id = $1 AND code = $2 AND purpose = $3 AND NOT used
		 ORDER BY created_at DESC
		 LIMIT 1`
	return scanCode(r.db.QueryRowContext(ctx, query, userID, code, string(purpose)))
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE verification_codes SET used = TRUE WHERE id = $1 AND NOT used`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
