package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/qss-platform/resident-service/internal/api/dto"
	"github.com/qss-platform/resident-service/internal/service"
	"github.com/qss-platform/resident-service/pkg/util"
)

// IdentityHandler serves role resolution and owner enrollment for the
// gateway.
type IdentityHandler struct {
	identity *service.IdentityService
}

// NewIdentityHandler constructs handler.
func NewIdentityHandler(identity *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

// Resolve GET /v1/identity/:telegram_id.
func (h *IdentityHandler) Resolve(c *fiber.Ctx) error {
	telegramID, err := strconv.ParseInt(c.Params("telegram_id"), 10, 64)
	if err != nil {
		return util.NewValidationError("invalid telegram id", nil)
	}
	identity, err := h.identity.Resolve(c.UserContext(), telegramID)
	if err != nil {
		return err
	}

	resp := dto.IdentityResponse{
		Role:     string(identity.Role),
		Language: identity.Language,
	}
	if identity.Owner != nil {
		owner := ownerResponse(identity.Owner)
		resp.Owner = &owner
	}
	if identity.Master != nil {
		master := masterResponse(identity.Master)
		resp.Master = &master
	}
	if identity.Admin != nil {
		admin := adminResponse(identity.Admin)
		resp.Admin = &admin
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Enroll POST /v1/identity/enroll.
func (h *IdentityHandler) Enroll(c *fiber.Ctx) error {
	var req dto.EnrollRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.TelegramID == 0 {
		return util.NewValidationError("telegram id required", nil)
	}
	owner, err := h.identity.EnrollOwner(c.UserContext(), req.TelegramID, req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ownerResponse(owner)})
}

// SetLanguage POST /v1/identity/language.
func (h *IdentityHandler) SetLanguage(c *fiber.Ctx) error {
	var req dto.SetLanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.identity.SetLanguage(c.UserContext(), req.TelegramID, req.Language); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
