package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeAndStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"conflict", NewConflict("taken", nil), CodeConflict, http.StatusConflict},
		{"not found", NewNotFound("tenant", nil), CodeNotFound, http.StatusNotFound},
		{"invalid state", NewInvalidState("shoes", "suspend", "error", "running"), CodeInvalidState, http.StatusConflict},
		{"validation", NewValidationError("bad name", nil), CodeValidationFailed, http.StatusBadRequest},
		{"template", NewTemplateError("empty db password", nil), CodeTemplateUnresolved, http.StatusUnprocessableEntity},
		{"unavailable", NewOrchestratorUnavailable("daemon down", nil), CodeOrchestratorUnavailable, http.StatusServiceUnavailable},
		{"rejected", NewOrchestratorRejected("bad image", nil), CodeOrchestratorRejected, http.StatusBadGateway},
		{"credential", NewCredentialError("rotate failed", nil), CodeCredentialFailed, http.StatusInternalServerError},
		{"unauthorized", NewUnauthorized("bad token"), CodeUnauthorized, http.StatusUnauthorized},
		{"fatal", NewFatal("orphaned database", nil), CodeFatal, http.StatusInternalServerError},
		{"internal", NewInternalError(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var domainErr *DomainError
			require.ErrorAs(t, tc.err, &domainErr)
			assert.Equal(t, tc.wantCode, domainErr.Code)
			assert.Equal(t, tc.wantStatus, domainErr.HTTPStatus)
			assert.True(t, IsCode(tc.err, tc.wantCode))
		})
	}
}

func TestInvalidStateMessageNamesStates(t *testing.T) {
	err := NewInvalidState("shoes", "suspend", "provisioning", "running")
	assert.Contains(t, err.Error(), "shoes")
	assert.Contains(t, err.Error(), "provisioning")
	assert.Contains(t, err.Error(), "running")
}

func TestIsCodeSeesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("delete tenant: %w", NewConflict("status changed", nil))
	assert.True(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(nil, CodeConflict))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}

func TestUnavailable(t *testing.T) {
	assert.True(t, Unavailable(NewOrchestratorUnavailable("daemon down", nil)))
	assert.True(t, Unavailable(fmt.Errorf("apply: %w", NewOrchestratorUnavailable("timeout", nil))))
	assert.False(t, Unavailable(NewOrchestratorRejected("bad image", nil)))
	assert.False(t, Unavailable(errors.New("plain")))
	assert.False(t, Unavailable(nil))
}

func TestToDomainError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("domain errors survive wrapping", func(t *testing.T) {
		original := NewConflict("taken", map[string]any{"tenant": "shoes"})
		converted := ToDomainError(fmt.Errorf("create: %w", original))
		assert.Equal(t, CodeConflict, converted.Code)
		assert.Equal(t, "shoes", converted.Details["tenant"])
	})

	t.Run("pgx no rows becomes not found", func(t *testing.T) {
		converted := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, CodeNotFound, converted.Code)
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		converted := ToDomainError(errors.New("disk on fire"))
		assert.Equal(t, CodeInternal, converted.Code)
		assert.Equal(t, "internal server error", converted.Message)
	})
}

func TestErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewFatal("drop database failed", cause)
	assert.Contains(t, err.Error(), "drop database failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)
}
