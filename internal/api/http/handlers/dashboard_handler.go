package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/qss-platform/resident-service/internal/api/dto"
	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/internal/service"
	"github.com/qss-platform/resident-service/pkg/util"
)

const dashboardPageSize = 20

// DashboardHandler serves the admin dashboard: registries, text templates and
// the filtered ticket list.
type DashboardHandler struct {
	directory *service.DirectoryService
	texts     *service.TextService
	queries   *service.QueryService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(directory *service.DirectoryService, texts *service.TextService, queries *service.QueryService) *DashboardHandler {
	return &DashboardHandler{directory: directory, texts: texts, queries: queries}
}

// parseTicketFilter builds a repository filter from list query parameters.
func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{}
	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(raw)
		if !domain.ValidStatus(status) {
			return filter, util.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	if raw := c.Query("complex"); raw != "" {
		filter.ResidentialComplex = &raw
	}
	if raw := c.Query("master_id"); raw != "" {
		masterID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, util.NewValidationError("invalid master id", nil)
		}
		filter.MasterID = &masterID
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, util.NewValidationError("invalid from date, expected YYYY-MM-DD", nil)
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, util.NewValidationError("invalid to date, expected YYYY-MM-DD", nil)
		}
		// Inclusive upper bound: the whole day counts.
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}
	return filter, nil
}

// ListTickets GET /v1/dashboard/tickets.
func (h *DashboardHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}

	page, err := h.queries.FilteredTickets(c.UserContext(), filter, c.QueryInt("page", 1), c.QueryInt("per_page", dashboardPageSize))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPage(page)})
}

// CreateOwner POST /v1/dashboard/owners.
func (h *DashboardHandler) CreateOwner(c *fiber.Ctx) error {
	var req dto.OwnerRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	owner := ownerFromRequest(req)
	if err := h.directory.CreateOwner(c.UserContext(), owner); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ownerResponse(owner)})
}

// UpdateOwner PUT /v1/dashboard/owners/:id.
func (h *DashboardHandler) UpdateOwner(c *fiber.Ctx) error {
	id, err := parseEntityID(c)
	if err != nil {
		return err
	}
	var req dto.OwnerRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	owner := ownerFromRequest(req)
	owner.ID = id
	if err := h.directory.UpdateOwner(c.UserContext(), owner); err != nil {
		return err
	}
	updated, err := h.directory.GetOwner(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ownerResponse(updated)})
}

// GetOwner GET /v1/dashboard/owners/:id.
func (h *DashboardHandler) GetOwner(c *fiber.Ctx) error {
	id, err := parseEntityID(c)
	if err != nil {
		return err
	}
	owner, err := h.directory.GetOwner(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ownerResponse(owner)})
}

// ListOwners GET /v1/dashboard/owners.
func (h *DashboardHandler) ListOwners(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", dashboardPageSize)
	owners, total, err := h.directory.ListOwners(c.UserContext(), page, perPage)
	if err != nil {
		return err
	}
	items := make([]dto.OwnerResponse, 0, len(owners))
	for i := range owners {
		items = append(items, ownerResponse(&owners[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.ListMeta{Total: total, Page: page, PerPage: perPage},
	})
}

// DeactivateOwner DELETE /v1/dashboard/owners/:id.
func (h *DashboardHandler) DeactivateOwner(c *fiber.Ctx) error {
	id, err := parseEntityID(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeactivateOwner(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateMaster POST /v1/dashboard/masters.
func (h *DashboardHandler) CreateMaster(c *fiber.Ctx) error {
	var req dto.MasterRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	master := masterFromRequest(req)
	if err := h.directory.CreateMaster(c.UserContext(), master); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": masterResponse(master)})
}

// UpdateMaster PUT /v1/dashboard/masters/:id.
func (h *DashboardHandler) UpdateMaster(c *fiber.Ctx) error {
	id, err := parseEntityID(c)
	if err != nil {
		return err
	}
	var req dto.MasterRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	master := masterFromRequest(req)
	master.ID = id
	if err := h.directory.UpdateMaster(c.UserContext(), master); err != nil {
		return err
	}
	updated, err := h.directory.GetMaster(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": masterResponse(updated)})
}

// ListMasters GET /v1/dashboard/masters.
func (h *DashboardHandler) ListMasters(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", dashboardPageSize)
	masters, total, err := h.directory.ListMasters(c.UserContext(), page, perPage)
	if err != nil {
		return err
	}
	items := make([]dto.MasterResponse, 0, len(masters))
	for i := range masters {
		items = append(items, masterResponse(&masters[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.ListMeta{Total: total, Page: page, PerPage: perPage},
	})
}

// ListActiveMasters GET /v1/dashboard/masters/active.
func (h *DashboardHandler) ListActiveMasters(c *fiber.Ctx) error {
	masters, err := h.directory.ListActiveMasters(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.MasterResponse, 0, len(masters))
	for i := range masters {
		items = append(items, masterResponse(&masters[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeactivateMaster DELETE /v1/dashboard/masters/:id.
func (h *DashboardHandler) DeactivateMaster(c *fiber.Ctx) error {
	id, err := parseEntityID(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeactivateMaster(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListTexts GET /v1/dashboard/texts.
func (h *DashboardHandler) ListTexts(c *fiber.Ctx) error {
	texts, err := h.texts.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.BotTextResponse, 0, len(texts))
	for _, t := range texts {
		items = append(items, botTextResponse(t))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpsertText PUT /v1/dashboard/texts.
func (h *DashboardHandler) UpsertText(c *fiber.Ctx) error {
	var req dto.BotTextRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	text := domain.BotText{
		Key:         req.Key,
		Language:    req.Language,
		Value:       req.Value,
		Description: req.Description,
	}
	if err := h.texts.Upsert(c.UserContext(), text); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func ownerFromRequest(req dto.OwnerRequest) *domain.Owner {
	return &domain.Owner{
		Phone:              req.Phone,
		FullName:           req.FullName,
		ResidentialComplex: req.ResidentialComplex,
		Block:              req.Block,
		Entrance:           req.Entrance,
		Apartment:          req.Apartment,
		Language:           req.Language,
	}
}

func masterFromRequest(req dto.MasterRequest) *domain.Master {
	return &domain.Master{
		TelegramID:           req.TelegramID,
		FullName:             req.FullName,
		Username:             req.Username,
		ResidentialComplexes: req.ResidentialComplexes,
		Language:             req.Language,
	}
}

func parseEntityID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError("invalid id", nil)
	}
	return id, nil
}
