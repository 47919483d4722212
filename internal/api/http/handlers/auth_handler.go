package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-engine/internal/api/dto"
	"github.com/spec-kit/provisioning-engine/internal/auth"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// AuthHandler issues operator tokens.
type AuthHandler struct {
	operator *auth.Operator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(operator *auth.Operator) *AuthHandler {
	return &AuthHandler{operator: operator}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, expiresAt, err := h.operator.Login(req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Token: token, ExpiresAt: expiresAt}})
}
