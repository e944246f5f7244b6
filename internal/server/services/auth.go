package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type SignupInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
}

type LoginInput struct {
	Email    string
	Password string
}

// MailQueue accepts emails for background delivery. *mail.Dispatcher
// implements it.
type MailQueue interface {
	Enqueue(job mail.Job) bool
}

// AuthService runs the account flows: signup, login, email verification,
// password reset and refresh token rotation.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	tokens      *auth.TokenManager
	codes       *CodeService
	mail        MailQueue
	composer    *mail.Composer
	logger      logging.Logger

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          timex.Clock
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	hasher cryptox.PasswordHasher, tokens *auth.TokenManager, codes *CodeService,
	queue MailQueue, l logging.Logger, opts ...Option) *AuthService {

	o := buildOptions(opts)
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		tokens:                       tokens,
		codes:                        codes,
		mail:                         queue,
		composer:                     mail.NewComposer(cfg.AppName, o.now),
		logger:                       l.With("module", "auth_service"),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          o.now,
	}
}

// Signup registers an unverified USER account and mails it a verification
// code. An email that is already registered is reported exactly like a
// malformed one. Failures after the account is stored are only logged.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	email, err := validation.ValidateSignup(in.Email, in.Password, in.PasswordConfirmation)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err = repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.InvalidArgument(common.MsgInvalidEmailOrPassword, "field", "email")
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.Infra("users.get_by_email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, common.Infra("password.hash", err)
	}

	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash, Role: models.RoleUser})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.InvalidArgument(common.MsgInvalidEmailOrPassword, "field", "email")
		}
		return nil, common.Infra("users.create", err)
	}

	s.logger.Info(ctx, "user signed up", "userId", user.ID)

	code, err := s.codes.Generate(ctx, user.ID, models.PurposeSignup)
	if err != nil {
		logging.LogError(ctx, s.logger, "signup code generation failed", err, "userId", user.ID)
		return user, nil
	}
	s.mail.Enqueue(s.composer.SignupVerification(user.Email, user.ID, code.Code))

	return user, nil
}

// Login checks credentials and issues a token pair. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	email, err := validation.ValidateLogin(in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.InvalidCredentials()
		}
		return nil, common.Infra("users.get_by_email", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, common.Infra("password.verify", err)
	}
	if !ok {
		return nil, common.InvalidCredentials()
	}

	return s.generateTokenPair(ctx, s.db, user)
}

// VerifyEmail redeems a signup code and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, code string) error {
	if userID == "" {
		return common.InvalidArgument("userId is required", "field", "userId")
	}
	if code == "" {
		return common.InvalidArgument("code is required", "field", "code")
	}

	if err := s.codes.Redeem(ctx, userID, code, models.PurposeSignup); err != nil {
		return err
	}

	verified := true
	user, err := s.repomanager.Users(s.db).UpdateByID(ctx, userID, models.UserPatch{Verified: &verified})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound(common.MsgUserNotFound, "userId", userID)
		}
		return common.Infra("users.update", err)
	}

	s.logger.Info(ctx, "email verified", "userId", userID)
	s.mail.Enqueue(s.composer.Welcome(user.Email))
	return nil
}

// ResendVerification issues a fresh signup code for an unverified account
// whose previous code has expired or been used.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound(common.MsgUserNotFound, "userId", userID)
		}
		return common.Infra("users.get_by_id", err)
	}
	if user.Verified {
		return common.InvalidArgument("User is already verified", "field", "userId")
	}

	code, err := s.codes.Generate(ctx, user.ID, models.PurposeSignup)
	if err != nil {
		return err
	}
	s.mail.Enqueue(s.composer.SignupVerification(user.Email, user.ID, code.Code))
	return nil
}

// ResetPassword replaces the password of userID and revokes every refresh
// token the user holds.
func (s *AuthService) ResetPassword(ctx context.Context, userID, newPassword, confirmation string) error {
	if userID == "" {
		return common.InvalidArgument("userId is required", "field", "userId")
	}
	if err := validation.ValidateNewPassword(newPassword, confirmation); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.Infra("password.hash", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Users(tx).UpdateByID(ctx, userID, models.UserPatch{PasswordHash: &hash})
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(common.MsgUserNotFound, "userId", userID)
			}
			return common.Infra("users.update", err)
		}

		n, err := s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, userID, s.now())
		if err != nil {
			return common.Infra("refresh_tokens.revoke_all", err)
		}
		s.logger.Info(ctx, "password reset", "userId", userID, "revokedTokens", n)
		return nil
	})
	return common.EnsureCoded("users.reset_password_tx", err)
}

// Refresh rotates a refresh token: the presented token is revoked, pointing
// at its successor, and a new pair is issued with the user's current role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.InvalidArgument("refreshToken is required", "field", "refreshToken")
	}

	payload, err := s.tokens.VerifyType(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := s.repomanager.RefreshTokens(s.db).FindActive(ctx, refreshToken, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.InvalidToken()
		}
		return nil, common.Infra("refresh_tokens.find_active", err)
	}
	if stored.UserID != payload.UserID {
		return nil, common.InvalidToken()
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.InvalidToken()
		}
		return nil, common.Infra("users.get_by_id", err)
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, tx, user)
		if genErr != nil {
			return genErr
		}

		if err := s.repomanager.RefreshTokens(tx).Revoke(ctx, stored.ID, &pair.RefreshToken, s.now()); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// revoked concurrently
				return common.InvalidToken()
			}
			return common.Infra("refresh_tokens.revoke", err)
		}
		return nil
	})
	if err != nil {
		return nil, common.EnsureCoded("refresh_tokens.rotate_tx", err)
	}

	return pair, nil
}

// Logout revokes a refresh token. Logging out with a token that is already
// revoked succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return common.InvalidArgument("refreshToken is required", "field", "refreshToken")
	}
	if _, err := s.tokens.VerifyType(refreshToken, auth.TokenRefresh); err != nil {
		return err
	}

	repo := s.repomanager.RefreshTokens(s.db)
	now := s.now()

	stored, err := repo.FindActive(ctx, refreshToken, now)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.Infra("refresh_tokens.find_active", err)
	}

	if err := repo.Revoke(ctx, stored.ID, nil, now); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return common.Infra("refresh_tokens.revoke", err)
	}
	return nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	access, err := s.tokens.Issue(user.ID, user.Role, auth.TokenAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.Issue(user.ID, user.Role, auth.TokenRefresh, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().Add(s.refreshTokenValidityDuration),
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, record); err != nil {
		return nil, common.Infra("refresh_tokens.create", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
