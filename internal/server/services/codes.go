package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// CodeAlphabet is the character set of generated codes.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeService issues and redeems one-time codes. At most one active code
// exists per (user, purpose).
type CodeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	length      int
	validity    time.Duration
	now         timex.Clock
}

func NewCodeService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *CodeService {
	o := buildOptions(opts)
	return &CodeService{
		db:          db,
		repomanager: m,
		length:      cfg.CodeLength,
		validity:    cfg.CodeValidityDuration,
		now:         o.now,
	}
}

func validatePurpose(purpose models.CodePurpose) error {
	if purpose == "" {
		return common.InvalidArgument("codeType is required", "field", "codeType")
	}
	if !purpose.Valid() {
		return common.InvalidArgument("Invalid codeType", "field", "codeType")
	}
	return nil
}

// Generate creates a new code for (userID, purpose). It fails with
// ALREADY_GENERATED_CODE while a previous code is still active.
func (s *CodeService) Generate(ctx context.Context, userID string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := validatePurpose(purpose); err != nil {
		return nil, err
	}

	var code *models.VerificationCode
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Codes(tx)

		if err := repo.Lock(ctx, userID, purpose); err != nil {
			return common.Infra("codes.lock", err)
		}

		now := s.now()
		_, err := repo.FindActive(ctx, userID, purpose, now)
		switch {
		case err == nil:
			return common.NewError(common.CodeAlreadyGenerated, common.MsgAlreadyGeneratedCode,
				"userId", userID, "codeType", string(purpose))
		case !errors.Is(err, common.ErrorNotFound):
			return common.Infra("codes.find_active", err)
		}

		code, err = repo.Create(ctx, &models.VerificationCode{
			Code:      common.RandomString(CodeAlphabet, s.length),
			UserID:    userID,
			Purpose:   purpose,
			ExpiresAt: now.Add(s.validity),
		})
		if err != nil {
			return common.Infra("codes.create", err)
		}
		return nil
	})
	if err != nil {
		return nil, common.EnsureCoded("codes.tx", err)
	}

	return code, nil
}

// Redeem consumes a code. Unknown, used, expired and mismatched codes all
// fail with the same INVALID_CODE error.
func (s *CodeService) Redeem(ctx context.Context, userID, code string, purpose models.CodePurpose) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if code == "" {
		return common.InvalidArgument("code is required", "field", "code")
	}
	if err := validatePurpose(purpose); err != nil {
		return err
	}

	repo := s.repomanager.Codes(s.db)

	found, err := repo.FindUnused(ctx, userID, code, purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.InvalidCode()
		}
		return common.Infra("codes.find_unused", err)
	}

	if !found.ActiveAt(s.now()) || subtle.ConstantTimeCompare([]byte(found.Code), []byte(code)) != 1 {
		return common.InvalidCode()
	}

	if err := repo.MarkUsed(ctx, found.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.InvalidCode()
		}
		return common.Infra("codes.mark_used", err)
	}

	return nil
}
