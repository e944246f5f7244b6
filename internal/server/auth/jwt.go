// Package auth issues and verifies the signed JWTs handed to clients.
// Verification is a pure signature and clock check; refresh-token revocation
// is looked up separately by the caller.
package auth

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType tags what a token may be used for.
type TokenType string

const (
	TokenAccess  TokenType = "ACCESS"
	TokenRefresh TokenType = "REFRESH"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

// Claims is the JWT claim set: registered claims plus identity, role and type.
type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	Type   TokenType   `json:"type"`
}

// Payload is the verified content of a token.
type Payload struct {
	UserID    string
	Role      models.Role
	Type      TokenType
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 tokens with a shared secret.
type TokenManager struct {
	secret []byte
	now    timex.Clock
}

// Option customizes a TokenManager.
type Option func(*TokenManager)

// WithClock replaces the wall clock used for iat, exp and expiry checks.
func WithClock(c timex.Clock) Option {
	return func(m *TokenManager) { m.now = c }
}

func NewTokenManager(secret string, opts ...Option) *TokenManager {
	m := &TokenManager{secret: []byte(secret), now: timex.SystemClock}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Issue mints a token for userID valid for ttl. Every token gets a fresh jti.
func (m *TokenManager) Issue(userID string, role models.Role, typ TokenType, ttl time.Duration) (string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", common.InvalidArgument("Payload userId is not a valid id", "field", "userId")
	}
	if !typ.Valid() {
		return "", common.InvalidArgument("Payload type is not valid", "field", "type")
	}
	if !role.Valid() {
		return "", common.InvalidArgument("Payload role is not valid", "field", "role")
	}
	if ttl <= 0 {
		return "", common.InvalidArgument("Token ttl must be positive", "field", "ttl")
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Role:   role,
		Type:   typ,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", common.Infra("jwt.sign", err)
	}

	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the payload.
// Every failure is reported as INVALID_TOKEN.
func (m *TokenManager) Verify(tokenString string) (*Payload, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, common.InvalidToken()
	}

	if !claims.Type.Valid() || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, common.InvalidToken()
	}

	p := &Payload{
		UserID:    claims.UserID,
		Role:      claims.Role,
		Type:      claims.Type,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}

// VerifyType verifies the token and additionally requires the given type.
func (m *TokenManager) VerifyType(tokenString string, want TokenType) (*Payload, error) {
	p, err := m.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if p.Type != want {
		return nil, common.InvalidToken()
	}
	return p, nil
}
