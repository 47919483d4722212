package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/provisioning-engine/internal/config"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("ops@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, "ops@example.com", claims.Subject)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("ops@example.com")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenManager("test-secret", 60).ParseToken("not.a.token")
	assert.Error(t, err)
}

func newTestOperator(t *testing.T, password string) *Operator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewOperator(config.AuthConfig{
		OperatorEmail:         "ops@example.com",
		OperatorPasswordHash:  string(hash),
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
	})
}

func TestOperatorLogin(t *testing.T) {
	op := newTestOperator(t, "correct horse")

	token, _, err := op.Login("ops@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := op.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Email)
}

func TestOperatorLoginCaseInsensitiveEmail(t *testing.T) {
	op := newTestOperator(t, "correct horse")

	_, _, err := op.Login("OPS@Example.COM", "correct horse")
	assert.NoError(t, err)
}

func TestOperatorLoginWrongPassword(t *testing.T) {
	op := newTestOperator(t, "correct horse")

	_, _, err := op.Login("ops@example.com", "wrong horse")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestOperatorLoginWrongEmail(t *testing.T) {
	op := newTestOperator(t, "correct horse")

	_, _, err := op.Login("intruder@example.com", "correct horse")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestOperatorLoginUnconfigured(t *testing.T) {
	op := NewOperator(config.AuthConfig{
		OperatorEmail: "ops@example.com",
		JWTSecret:     "test-secret",
	})

	_, _, err := op.Login("ops@example.com", "anything")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}
