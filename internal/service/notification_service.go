package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/events"
	"github.com/qss-platform/resident-service/internal/format"
	"github.com/qss-platform/resident-service/internal/observability"
	"github.com/qss-platform/resident-service/internal/repository"
)

// Template keys used by the notification fan-out.
const (
	textCreateSubmitted        = "create_submitted"
	textNotifyStatusChanged    = "notify_status_changed"
	textNotifyStatusWithMaster = "notify_status_with_master"
	textNotifyCompleted        = "notify_completed"
	textNotifyAdminNewTicket   = "notify_admin_new_ticket"
	textNotifyCarPlateApproval = "notify_car_plate_approval"
	textNotifyCarPlateAdmin    = "notify_car_plate_admin_review"
	textNotifyCarPlateApproved = "notify_car_plate_approved"
	textNotifyCarPlateRejected = "notify_car_plate_rejected"
	textNotifyCarPlateInWork   = "notify_car_plate_in_progress"
	textNotifyTicketRated      = "notify_ticket_rated"
	textNotifyTicketReassigned = "notify_ticket_reassigned"
)

// NotificationService fans lifecycle events out to owners, the masters
// serving the ticket's complex, and every admin, each in their own language.
// Delivery is best-effort: a failed send is logged and counted, never
// retried, and never fails the transition that caused it.
type NotificationService struct {
	messenger Messenger
	texts     *TextService
	owners    repository.OwnerRepository
	masters   repository.MasterRepository
	admins    repository.AdminRepository
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewNotificationService(
	messenger Messenger,
	texts *TextService,
	owners repository.OwnerRepository,
	masters repository.MasterRepository,
	admins repository.AdminRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		messenger: messenger,
		texts:     texts,
		owners:    owners,
		masters:   masters,
		admins:    admins,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterHandlers subscribes the fan-out to every lifecycle event.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	dispatcher.Subscribe(events.EventTicketAccepted, s.onTicketAccepted)
	dispatcher.Subscribe(events.EventTicketCompleted, s.onTicketCompleted)
	dispatcher.Subscribe(events.EventTicketRated, s.onTicketRated)
	dispatcher.Subscribe(events.EventCarPlateMasterReviewed, s.onCarPlateMasterReviewed)
	dispatcher.Subscribe(events.EventCarPlateAdminDecided, s.onCarPlateAdminDecided)
	dispatcher.Subscribe(events.EventTicketReassigned, s.onTicketReassigned)
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	card := format.TicketCard(ticket)

	s.sendToOwner(ctx, ticket, textCreateSubmitted, map[string]string{
		"code": ticket.Code,
	})

	// Car-plate tickets prompt the complex's masters for a review, with the
	// contract photo shown before the prompt. Everything else gets the plain
	// new-ticket card.
	masterKey := textNotifyStatusChanged
	if ticket.Status == domain.TicketStatusPendingApproval {
		masterKey = textNotifyCarPlateApproval
	}
	for _, master := range s.complexMasters(ctx, ticket.ResidentialComplex) {
		if ticket.CarPlate != nil && ticket.CarPlate.ContractPhoto != "" {
			s.sendPhoto(ctx, master.TelegramID, ticket.CarPlate.ContractPhoto, "")
		}
		s.send(ctx, master.TelegramID, s.text(ctx, masterKey, master.Language, map[string]string{
			"ticket": card,
		}))
	}

	for _, admin := range s.allAdmins(ctx) {
		s.send(ctx, admin.TelegramID, s.text(ctx, textNotifyAdminNewTicket, admin.Language, map[string]string{
			"ticket": card,
		}))
	}
	return nil
}

func (s *NotificationService) onTicketAccepted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAcceptedPayload)
	if !ok {
		return nil
	}
	s.sendToOwner(ctx, payload.Ticket, textNotifyStatusWithMaster, map[string]string{
		"code":   payload.Ticket.Code,
		"status": format.Status(payload.Ticket.Status),
		"master": payload.MasterName,
	})
	return nil
}

func (s *NotificationService) onTicketCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCompletedPayload)
	if !ok {
		return nil
	}
	s.sendToOwner(ctx, payload.Ticket, textNotifyCompleted, map[string]string{
		"code": payload.Ticket.Code,
	})
	return nil
}

func (s *NotificationService) onTicketRated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRatedPayload)
	if !ok {
		return nil
	}
	args := map[string]string{
		"code":   payload.Ticket.Code,
		"rating": fmt.Sprintf("%d", payload.Rating),
	}
	if payload.Comment != nil {
		args["comment"] = *payload.Comment
	}
	for _, admin := range s.allAdmins(ctx) {
		s.send(ctx, admin.TelegramID, s.text(ctx, textNotifyTicketRated, admin.Language, args))
	}
	return nil
}

func (s *NotificationService) onCarPlateMasterReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CarPlateMasterReviewedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	card := format.TicketCard(ticket)
	for _, admin := range s.allAdmins(ctx) {
		if ticket.CarPlate != nil && ticket.CarPlate.ContractPhoto != "" {
			s.sendPhoto(ctx, admin.TelegramID, ticket.CarPlate.ContractPhoto, "")
		}
		s.send(ctx, admin.TelegramID, s.text(ctx, textNotifyCarPlateAdmin, admin.Language, map[string]string{
			"ticket": card,
			"status": format.Status(ticket.Status),
		}))
	}
	return nil
}

func (s *NotificationService) onCarPlateAdminDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CarPlateAdminDecidedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	if !payload.Approved {
		s.sendToOwner(ctx, ticket, textNotifyCarPlateRejected, map[string]string{
			"code": ticket.Code,
		})
		return nil
	}

	s.sendToOwner(ctx, ticket, textNotifyCarPlateApproved, map[string]string{
		"code": ticket.Code,
	})
	if payload.MasterTelegramID != 0 {
		master, err := s.masters.GetByTelegramID(ctx, payload.MasterTelegramID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				s.logger.Warn("master lookup for notification failed", zap.Error(err))
			}
			return nil
		}
		s.send(ctx, master.TelegramID, s.text(ctx, textNotifyCarPlateInWork, master.Language, map[string]string{
			"ticket": format.TicketCard(ticket),
		}))
	}
	return nil
}

func (s *NotificationService) onTicketReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReassignedPayload)
	if !ok {
		return nil
	}
	master, err := s.masters.GetByID(ctx, payload.MasterID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("master lookup for notification failed", zap.Error(err))
		}
		return nil
	}
	s.send(ctx, master.TelegramID, s.text(ctx, textNotifyTicketReassigned, master.Language, map[string]string{
		"ticket": format.TicketCard(payload.Ticket),
	}))
	return nil
}

func (s *NotificationService) sendToOwner(ctx context.Context, ticket domain.Ticket, key string, args map[string]string) {
	language := domain.DefaultLanguage
	owner, err := s.owners.GetByTelegramID(ctx, ticket.OwnerTelegramID)
	if err == nil {
		language = owner.Language
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("owner lookup for notification failed", zap.Error(err))
	}
	s.send(ctx, ticket.OwnerTelegramID, s.text(ctx, key, language, args))
}

func (s *NotificationService) complexMasters(ctx context.Context, residentialComplex string) []domain.Master {
	masters, err := s.masters.ListByComplex(ctx, residentialComplex)
	if err != nil {
		s.logger.Warn("master fan-out lookup failed",
			zap.String("complex", residentialComplex), zap.Error(err))
		return nil
	}
	return masters
}

func (s *NotificationService) allAdmins(ctx context.Context) []domain.Admin {
	admins, err := s.admins.ListAll(ctx)
	if err != nil {
		s.logger.Warn("admin fan-out lookup failed", zap.Error(err))
		return nil
	}
	return admins
}

func (s *NotificationService) text(ctx context.Context, key, language string, args map[string]string) string {
	return s.texts.Text(ctx, key, language, args)
}

func (s *NotificationService) send(ctx context.Context, recipient int64, text string) {
	delivered := s.messenger.SendMessage(ctx, recipient, text)
	if s.metrics != nil {
		s.metrics.RecordNotification("message", delivered)
	}
	if !delivered {
		s.logger.Warn("notification not delivered", zap.Int64("recipient", recipient))
	}
}

func (s *NotificationService) sendPhoto(ctx context.Context, recipient int64, photoRef, caption string) {
	delivered := s.messenger.SendPhoto(ctx, recipient, photoRef, caption)
	if s.metrics != nil {
		s.metrics.RecordNotification("photo", delivered)
	}
	if !delivered {
		s.logger.Warn("notification photo not delivered", zap.Int64("recipient", recipient))
	}
}
