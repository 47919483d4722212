package auth

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/provisioning-engine/internal/config"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// Operator authenticates the single platform operator configured through the
// environment and issues access tokens. Tenant end users never authenticate
// against this engine; their applications are opaque payloads.
type Operator struct {
	email        string
	passwordHash string
	tokens       *TokenManager
}

// NewOperator builds the operator authenticator.
func NewOperator(cfg config.AuthConfig) *Operator {
	return &Operator{
		email:        cfg.OperatorEmail,
		passwordHash: cfg.OperatorPasswordHash,
		tokens:       NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Login verifies operator credentials and returns a signed token.
func (o *Operator) Login(email, password string) (string, time.Time, error) {
	if o.passwordHash == "" {
		return "", time.Time{}, apperrors.NewUnauthorized("operator login is not configured")
	}
	if !strings.EqualFold(email, o.email) {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(o.passwordHash), []byte(password)); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return o.tokens.GenerateToken(o.email)
}

// TokenManager exposes the manager for middleware wiring.
func (o *Operator) TokenManager() *TokenManager {
	return o.tokens
}
