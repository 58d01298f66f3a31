package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qss-platform/resident-service/internal/api/dto"
	"github.com/qss-platform/resident-service/internal/service"
	"github.com/qss-platform/resident-service/pkg/util"
)

// AuthHandler serves dashboard credential login.
type AuthHandler struct {
	identity *service.IdentityService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// Login POST /v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return util.NewValidationError("username and password required", nil)
	}
	result, err := h.identity.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: result.AccessToken,
		ExpiresAt:   result.ExpiresAt,
	}})
}
