package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/qss-platform/resident-service/internal/api/dto"
	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/service"
	"github.com/qss-platform/resident-service/pkg/util"
)

// TicketsHandler serves ticket creation, lifecycle actions and lists.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	queries   *service.QueryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, queries *service.QueryService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, queries: queries}
}

// Create POST /v1/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	input := service.CreateTicketInput{
		OwnerTelegramID:    req.OwnerTelegramID,
		ResidentialComplex: req.ResidentialComplex,
		Category:           req.Category,
		SubCategory:        req.SubCategory,
		Block:              req.Block,
		Entrance:           req.Entrance,
		Apartment:          req.Apartment,
		Description:        req.Description,
		Attachments:        req.Attachments,
		FaceIDPhotos:       req.FaceIDPhotos,
	}
	if req.CarPlate != nil {
		input.CarPlate = &domain.CarPlateDetails{
			Plate:         req.CarPlate.Plate,
			Gate:          req.CarPlate.Gate,
			HasParking:    req.CarPlate.HasParking,
			ParkingNumber: req.CarPlate.ParkingNumber,
			ParkingReason: req.CarPlate.ParkingReason,
			ContractPhoto: req.CarPlate.ContractPhoto,
		}
	}
	if req.CameraAccess != nil {
		input.CameraAccess = &domain.CameraAccessDetails{
			Email:   req.CameraAccess.Email,
			Details: req.CameraAccess.Details,
		}
	}
	if req.Keys != nil {
		input.Keys = &domain.KeyDetails{Count: req.Keys.Count, Type: req.Keys.Type}
	}

	ticket, err := h.lifecycle.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Accept POST /v1/tickets/:id/accept.
func (h *TicketsHandler) Accept(c *fiber.Ctx) error {
	return h.action(c, func(actor, ticketID int64) (*domain.Ticket, error) {
		return h.lifecycle.AcceptTicket(c.UserContext(), actor, ticketID)
	})
}

// Complete POST /v1/tickets/:id/complete.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	return h.action(c, func(actor, ticketID int64) (*domain.Ticket, error) {
		return h.lifecycle.CompleteTicket(c.UserContext(), actor, ticketID)
	})
}

// Rate POST /v1/tickets/:id/rate.
func (h *TicketsHandler) Rate(c *fiber.Ctx) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.RateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RateTicket(c.UserContext(), req.ActorTelegramID, ticketID, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ReviewMaster POST /v1/tickets/:id/review/master.
func (h *TicketsHandler) ReviewMaster(c *fiber.Ctx) error {
	return h.review(c, func(actor, ticketID int64, approve bool) (*domain.Ticket, error) {
		return h.lifecycle.ReviewByMaster(c.UserContext(), actor, ticketID, approve)
	})
}

// ReviewAdmin POST /v1/tickets/:id/review/admin.
func (h *TicketsHandler) ReviewAdmin(c *fiber.Ctx) error {
	return h.review(c, func(actor, ticketID int64, approve bool) (*domain.Ticket, error) {
		return h.lifecycle.ReviewByAdmin(c.UserContext(), actor, ticketID, approve)
	})
}

// Reassign POST /v1/tickets/:id/reassign.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.ReassignMaster(c.UserContext(), req.ActorTelegramID, ticketID, req.MasterID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Get GET /v1/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// GetByCode GET /v1/tickets/code/:code.
func (h *TicketsHandler) GetByCode(c *fiber.Ctx) error {
	ticket, err := h.lifecycle.GetTicketByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// History GET /v1/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	entries, err := h.lifecycle.GetHistory(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyEntry(e))
	}
	return c.JSON(fiber.Map{"data": items})
}

// List GET /v1/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
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

// OwnerTickets GET /v1/owners/:telegram_id/tickets.
func (h *TicketsHandler) OwnerTickets(c *fiber.Ctx) error {
	telegramID, err := strconv.ParseInt(c.Params("telegram_id"), 10, 64)
	if err != nil {
		return util.NewValidationError("invalid telegram id", nil)
	}
	page, err := h.queries.OwnerTickets(c.UserContext(), telegramID, c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPage(page)})
}

// MasterQueue GET /v1/masters/:id/tickets.
func (h *TicketsHandler) MasterQueue(c *fiber.Ctx) error {
	masterID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return util.NewValidationError("invalid master id", nil)
	}
	page, err := h.queries.MasterQueue(c.UserContext(), masterID, c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPage(page)})
}

// AvailableTickets GET /v1/masters/:telegram_id/available.
func (h *TicketsHandler) AvailableTickets(c *fiber.Ctx) error {
	telegramID, err := strconv.ParseInt(c.Params("telegram_id"), 10, 64)
	if err != nil {
		return util.NewValidationError("invalid telegram id", nil)
	}
	page, err := h.queries.AvailableTickets(c.UserContext(), telegramID, c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPage(page)})
}

func (h *TicketsHandler) action(c *fiber.Ctx, fn func(actor, ticketID int64) (*domain.Ticket, error)) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := fn(req.ActorTelegramID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

func (h *TicketsHandler) review(c *fiber.Ctx, fn func(actor, ticketID int64, approve bool) (*domain.Ticket, error)) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := fn(req.ActorTelegramID, ticketID, req.Approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}
