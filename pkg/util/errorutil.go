package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced by the provisioning engine.
const (
	CodeConflict                = "CONFLICT"
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidState            = "INVALID_STATE"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeTemplateUnresolved      = "TEMPLATE_UNRESOLVED"
	CodeOrchestratorUnavailable = "ORCHESTRATOR_UNAVAILABLE"
	CodeOrchestratorRejected    = "ORCHESTRATOR_REJECTED"
	CodeCredentialFailed        = "CREDENTIAL_FAILED"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeFatal                   = "FATAL"
	CodeInternal                = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidState reports an operation attempted from a disallowed lifecycle state.
func NewInvalidState(tenant, operation, current, required string) error {
	return NewDomainError(
		CodeInvalidState,
		fmt.Sprintf("%s not allowed for tenant %q: status is %q, requires %q", operation, tenant, current, required),
		http.StatusConflict,
		map[string]any{
			"tenant":    tenant,
			"operation": operation,
			"current":   current,
			"required":  required,
		},
	)
}

// NewTemplateError reports an unresolved placeholder during blueprint rendering.
func NewTemplateError(message string, details map[string]any) error {
	return NewDomainError(CodeTemplateUnresolved, message, http.StatusUnprocessableEntity, details)
}

// NewOrchestratorUnavailable marks a container-runtime failure eligible for retry.
func NewOrchestratorUnavailable(message string, err error) error {
	return &DomainError{
		Code:       CodeOrchestratorUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewOrchestratorRejected marks a container-runtime refusal that retrying will not fix.
func NewOrchestratorRejected(message string, details map[string]any) error {
	return NewDomainError(CodeOrchestratorRejected, message, http.StatusBadGateway, details)
}

func NewCredentialError(message string, err error) error {
	return &DomainError{
		Code:       CodeCredentialFailed,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewFatal marks failures that require operator attention.
func NewFatal(message string, err error) error {
	return &DomainError{
		Code:       CodeFatal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Unavailable reports whether err is a transient failure eligible for bounded retry.
func Unavailable(err error) bool {
	return IsCode(err, CodeOrchestratorUnavailable)
}
