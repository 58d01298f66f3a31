package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/events"
	"github.com/qss-platform/resident-service/internal/observability"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/pkg/util"
)

// History comments recorded by the engine. These are audit-trail values, kept
// in Russian to match the persisted records the dashboard renders.
const (
	commentCreated           = "Заявка создана"
	commentCreatedCarPlate   = "Заявка на госномер создана, ожидает одобрения"
	commentAccepted          = "Мастер принял заявку"
	commentCompleted         = "Мастер выполнил заявку"
	commentMasterApproved    = "Мастер одобрил заявку на госномер"
	commentMasterRejected    = "Мастер отклонил заявку на госномер"
	commentAdminApproved     = "Администратор одобрил заявку на госномер, передано мастеру для добавления в систему"
	commentAdminRejected     = "Администратор отклонил заявку на госномер"
	commentReassignedToFmt   = "Мастер изменен на: %s"
	commentRatingFmt         = "Оценка: %d/5"
	commentRatingWithTailFmt = "Оценка: %d/5 — %s"
)

// LifecycleService is the ticket lifecycle engine: it validates role-gated
// transitions, executes them atomically with their audit entries, and emits
// events for the notification fan-out.
type LifecycleService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	owners     repository.OwnerRepository
	masters    repository.MasterRepository
	admins     repository.AdminRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	maxPerDay  int
}

// LifecycleDependencies bundles collaborators for the engine.
type LifecycleDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	OwnerRepo   repository.OwnerRepository
	MasterRepo  repository.MasterRepository
	AdminRepo   repository.AdminRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	MaxPerDay   int
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		owners:     deps.OwnerRepo,
		masters:    deps.MasterRepo,
		admins:     deps.AdminRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		maxPerDay:  deps.MaxPerDay,
	}
}

// CreateTicketInput is the completed attribute bag handed over by the intake
// flow. Category-specific payloads are typed; validation rejects a payload
// that does not match the category.
type CreateTicketInput struct {
	OwnerTelegramID    int64
	ResidentialComplex string
	Category           domain.TicketCategory
	SubCategory        string
	Block              string
	Entrance           string
	Apartment          string
	Description        string
	Attachments        []string
	FaceIDPhotos       []string
	CarPlate           *domain.CarPlateDetails
	CameraAccess       *domain.CameraAccessDetails
	Keys               *domain.KeyDetails
}

func (in CreateTicketInput) validate() error {
	if in.OwnerTelegramID == 0 {
		return util.NewValidationError("owner telegram id required", nil)
	}
	if in.ResidentialComplex == "" {
		return util.NewValidationError("residential complex required", nil)
	}
	if in.Description == "" {
		return util.NewValidationError("description required", nil)
	}
	switch in.Category {
	case domain.CategoryCarPlate:
		if in.CarPlate == nil || in.CarPlate.Plate == "" {
			return util.NewValidationError("car plate payload required for car_plate category", nil)
		}
	case domain.CategoryCameraAccess:
		if in.CameraAccess == nil || in.CameraAccess.Email == "" {
			return util.NewValidationError("camera access payload required for camera_access category", nil)
		}
	case domain.CategoryKeyMagnet:
		if in.Keys == nil || in.Keys.Count <= 0 {
			return util.NewValidationError("key payload required for key_magnet category", nil)
		}
	case domain.CategoryCCTV, domain.CategoryFaceID, domain.CategoryIntercom, domain.CategoryOther:
	default:
		return util.NewValidationError("unknown category", map[string]any{"category": in.Category})
	}
	return nil
}

// CreateTicket creates a ticket for an enrolled owner, enforcing the daily
// quota and generating the QSS code inside one serialized transaction.
func (s *LifecycleService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	owner, err := s.requireOwner(ctx, input.OwnerTelegramID)
	if err != nil {
		return nil, err
	}

	status := input.Category.InitialStatus()
	ticket := &domain.Ticket{
		OwnerTelegramID:    input.OwnerTelegramID,
		OwnerPhone:         owner.Phone,
		OwnerFullName:      owner.FullName,
		ResidentialComplex: input.ResidentialComplex,
		Category:           input.Category,
		SubCategory:        input.SubCategory,
		Block:              input.Block,
		Entrance:           input.Entrance,
		Apartment:          input.Apartment,
		Description:        input.Description,
		Attachments:        input.Attachments,
		FaceIDPhotos:       input.FaceIDPhotos,
		CarPlate:           input.CarPlate,
		CameraAccess:       input.CameraAccess,
		Keys:               input.Keys,
		Status:             status,
	}

	comment := commentCreated
	if status == domain.TicketStatusPendingApproval {
		comment = commentCreatedCarPlate
	}
	entry := domain.TicketHistoryEntry{
		OldStatus:     nil,
		NewStatus:     status,
		ChangedByID:   &input.OwnerTelegramID,
		ChangedByRole: rolePtr(domain.RoleOwner),
		Comment:       comment,
	}

	if err := s.tickets.Create(ctx, ticket, &entry, s.maxPerDay); err != nil {
		if errors.Is(err, repository.ErrDailyQuotaExceeded) {
			return nil, util.NewQuotaExceeded("daily ticket limit reached",
				map[string]any{"limit": s.maxPerDay})
		}
		return nil, util.MapError(err)
	}

	s.logger.Info("ticket created",
		zap.String("code", ticket.Code),
		zap.Int64("owner", ticket.OwnerTelegramID),
		zap.String("status", string(ticket.Status)))

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleOwner, TelegramID: input.OwnerTelegramID},
		Payload:  events.TicketCreatedPayload{Ticket: *ticket},
	})
	return ticket, nil
}

// AcceptTicket moves a new ticket into work and claims it for the acting
// master. First accept wins; a lost race surfaces as a conflict.
func (s *LifecycleService) AcceptTicket(ctx context.Context, masterTelegramID, ticketID int64) (*domain.Ticket, error) {
	master, err := s.requireMaster(ctx, masterTelegramID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusNew {
		return nil, util.NewConflict("ticket already in progress",
			map[string]any{"status": ticket.Status})
	}

	var assign *int64
	if ticket.AssignedMasterID == nil {
		assign = &master.ID
	}
	updated, err := s.tickets.Transition(ctx, repository.StatusTransition{
		TicketID:       ticketID,
		From:           []domain.TicketStatus{domain.TicketStatusNew},
		To:             domain.TicketStatusInProgress,
		AssignMasterID: assign,
		Entry: domain.TicketHistoryEntry{
			OldStatus:     statusPtr(domain.TicketStatusNew),
			NewStatus:     domain.TicketStatusInProgress,
			ChangedByID:   &masterTelegramID,
			ChangedByRole: rolePtr(domain.RoleMaster),
			Comment:       commentAccepted,
		},
	})
	if err != nil {
		return nil, s.mapTransitionErr(err, ticket.Code, "accept")
	}
	s.recordTransition(domain.TicketStatusNew, domain.TicketStatusInProgress)

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAccepted,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleMaster, TelegramID: masterTelegramID},
		Payload:  events.TicketAcceptedPayload{Ticket: *updated, MasterName: master.FullName},
	})
	return updated, nil
}

// CompleteTicket finishes work on a ticket, stamping completed_at. Valid from
// new or in_progress: a master may complete without an explicit accept.
func (s *LifecycleService) CompleteTicket(ctx context.Context, masterTelegramID, ticketID int64) (*domain.Ticket, error) {
	if _, err := s.requireMaster(ctx, masterTelegramID); err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	completableFrom := []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusInProgress}
	if !statusIn(ticket.Status, completableFrom) {
		return nil, util.NewConflict("ticket cannot be completed in current status",
			map[string]any{"status": ticket.Status})
	}

	// CAS on the exact status that was read so a concurrent transition
	// surfaces as a conflict instead of a history entry with a stale
	// old_status.
	updated, err := s.tickets.Transition(ctx, repository.StatusTransition{
		TicketID: ticketID,
		From:     []domain.TicketStatus{ticket.Status},
		To:       domain.TicketStatusCompleted,
		Entry: domain.TicketHistoryEntry{
			OldStatus:     statusPtr(ticket.Status),
			NewStatus:     domain.TicketStatusCompleted,
			ChangedByID:   &masterTelegramID,
			ChangedByRole: rolePtr(domain.RoleMaster),
			Comment:       commentCompleted,
		},
	})
	if err != nil {
		return nil, s.mapTransitionErr(err, ticket.Code, "complete")
	}
	s.recordTransition(ticket.Status, domain.TicketStatusCompleted)

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCompleted,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleMaster, TelegramID: masterTelegramID},
		Payload:  events.TicketCompletedPayload{Ticket: *updated},
	})
	return updated, nil
}

// RateTicket lets the submitting owner close a completed ticket with a 1-5
// rating and an optional comment.
func (s *LifecycleService) RateTicket(ctx context.Context, ownerTelegramID, ticketID int64, rating int, comment *string) (*domain.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, util.NewValidationError("rating must be between 1 and 5",
			map[string]any{"rating": rating})
	}
	if _, err := s.requireOwner(ctx, ownerTelegramID); err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerTelegramID != ownerTelegramID {
		return nil, util.NewForbidden("ticket belongs to another owner")
	}

	historyComment := fmt.Sprintf(commentRatingFmt, rating)
	if comment != nil && *comment != "" {
		historyComment = fmt.Sprintf(commentRatingWithTailFmt, rating, *comment)
	}
	updated, err := s.tickets.SetRating(ctx, ticketID, rating, comment, domain.TicketHistoryEntry{
		OldStatus:     statusPtr(domain.TicketStatusCompleted),
		NewStatus:     domain.TicketStatusClosed,
		ChangedByID:   &ownerTelegramID,
		ChangedByRole: rolePtr(domain.RoleOwner),
		Comment:       historyComment,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, util.NewConflict("ticket is not awaiting a rating",
				map[string]any{"status": ticket.Status})
		}
		return nil, util.MapError(err)
	}
	s.recordTransition(domain.TicketStatusCompleted, domain.TicketStatusClosed)

	s.publish(ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleOwner, TelegramID: ownerTelegramID},
		Payload:  events.TicketRatedPayload{Ticket: *updated, Rating: rating, Comment: comment},
	})
	return updated, nil
}

// ReviewByMaster records the first stage of the car-plate dual approval. The
// ticket must still be pending; a second press lands here with the status
// already moved and is rejected without touching state.
func (s *LifecycleService) ReviewByMaster(ctx context.Context, masterTelegramID, ticketID int64, approve bool) (*domain.Ticket, error) {
	master, err := s.requireMaster(ctx, masterTelegramID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusPendingApproval {
		return nil, util.NewConflict("ticket already reviewed",
			map[string]any{"status": ticket.Status})
	}

	target := domain.TicketStatusMasterRejected
	comment := commentMasterRejected
	if approve {
		target = domain.TicketStatusMasterApproved
		comment = commentMasterApproved
	}
	// The reviewing master takes the ticket either way so it stays in their
	// list while the admin decision is pending.
	assign := &master.ID

	updated, err := s.tickets.Transition(ctx, repository.StatusTransition{
		TicketID:       ticketID,
		From:           []domain.TicketStatus{domain.TicketStatusPendingApproval},
		To:             target,
		AssignMasterID: assign,
		Entry: domain.TicketHistoryEntry{
			OldStatus:     statusPtr(domain.TicketStatusPendingApproval),
			NewStatus:     target,
			ChangedByID:   &masterTelegramID,
			ChangedByRole: rolePtr(domain.RoleMaster),
			Comment:       comment,
		},
	})
	if err != nil {
		return nil, s.mapTransitionErr(err, ticket.Code, "master review")
	}
	s.recordTransition(domain.TicketStatusPendingApproval, target)

	s.publish(ctx, events.Event{
		Type:     events.EventCarPlateMasterReviewed,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleMaster, TelegramID: masterTelegramID},
		Payload:  events.CarPlateMasterReviewedPayload{Ticket: *updated, Approved: approve},
	})
	return updated, nil
}

// reviewableByAdmin is the status set the admin decision accepts: normally
// after a master review, but a pending ticket may be decided directly.
var reviewableByAdmin = []domain.TicketStatus{
	domain.TicketStatusMasterApproved,
	domain.TicketStatusMasterRejected,
	domain.TicketStatusPendingApproval,
}

// ReviewByAdmin records the final stage of the car-plate dual approval. On
// approval the ticket moves to in_progress and is handed to the master who
// approved it at the master-review step, resolved from history.
func (s *LifecycleService) ReviewByAdmin(ctx context.Context, adminTelegramID, ticketID int64, approve bool) (*domain.Ticket, error) {
	if _, err := s.requireAdmin(ctx, adminTelegramID); err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !statusIn(ticket.Status, reviewableByAdmin) {
		return nil, util.NewConflict("ticket already reviewed",
			map[string]any{"status": ticket.Status})
	}

	if !approve {
		updated, err := s.tickets.Transition(ctx, repository.StatusTransition{
			TicketID: ticketID,
			From:     []domain.TicketStatus{ticket.Status},
			To:       domain.TicketStatusRejected,
			Entry: domain.TicketHistoryEntry{
				OldStatus:     statusPtr(ticket.Status),
				NewStatus:     domain.TicketStatusRejected,
				ChangedByID:   &adminTelegramID,
				ChangedByRole: rolePtr(domain.RoleAdmin),
				Comment:       commentAdminRejected,
			},
		})
		if err != nil {
			return nil, s.mapTransitionErr(err, ticket.Code, "admin reject")
		}
		s.recordTransition(ticket.Status, domain.TicketStatusRejected)
		s.publish(ctx, events.Event{
			Type:     events.EventCarPlateAdminDecided,
			TicketID: ticketID,
			Actor:    events.Actor{Role: domain.RoleAdmin, TelegramID: adminTelegramID},
			Payload:  events.CarPlateAdminDecidedPayload{Ticket: *updated, Approved: false},
		})
		return updated, nil
	}

	// Hand the ticket to the master who approved it, not necessarily the
	// current assignee. Derived from history so the audit trail stays the
	// single source of truth.
	var approvingMaster *domain.Master
	approvingTGID, err := s.tickets.ApprovingMasterID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if approvingTGID != nil {
		master, err := s.masters.GetByTelegramID(ctx, *approvingTGID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, util.MapError(err)
		}
		approvingMaster = master
	}

	var assign *int64
	if approvingMaster != nil {
		assign = &approvingMaster.ID
	}
	updated, err := s.tickets.Transition(ctx, repository.StatusTransition{
		TicketID:       ticketID,
		From:           []domain.TicketStatus{ticket.Status},
		To:             domain.TicketStatusInProgress,
		AssignMasterID: assign,
		Entry: domain.TicketHistoryEntry{
			OldStatus:     statusPtr(ticket.Status),
			NewStatus:     domain.TicketStatusInProgress,
			ChangedByID:   &adminTelegramID,
			ChangedByRole: rolePtr(domain.RoleAdmin),
			Comment:       commentAdminApproved,
		},
	})
	if err != nil {
		return nil, s.mapTransitionErr(err, ticket.Code, "admin approve")
	}
	s.recordTransition(ticket.Status, domain.TicketStatusInProgress)

	payload := events.CarPlateAdminDecidedPayload{Ticket: *updated, Approved: true}
	if approvingMaster != nil {
		payload.MasterTelegramID = approvingMaster.TelegramID
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCarPlateAdminDecided,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleAdmin, TelegramID: adminTelegramID},
		Payload:  payload,
	})
	return updated, nil
}

// ReassignMaster changes the assignee at any status without touching the
// status itself. Logged as a self-transition so the audit trail stays
// complete.
func (s *LifecycleService) ReassignMaster(ctx context.Context, adminTelegramID, ticketID, masterID int64) (*domain.Ticket, error) {
	if _, err := s.requireAdmin(ctx, adminTelegramID); err != nil {
		return nil, err
	}
	master, err := s.masters.GetByID(ctx, masterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("master", map[string]any{"master_id": masterID})
		}
		return nil, util.MapError(err)
	}
	if !master.IsActive {
		return nil, util.NewConflict("master inactive", map[string]any{"master_id": masterID})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	err = s.tickets.ReassignMaster(ctx, ticketID, masterID, domain.TicketHistoryEntry{
		OldStatus:     statusPtr(ticket.Status),
		NewStatus:     ticket.Status,
		ChangedByID:   &adminTelegramID,
		ChangedByRole: rolePtr(domain.RoleAdmin),
		Comment:       fmt.Sprintf(commentReassignedToFmt, master.FullName),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}

	updated, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleAdmin, TelegramID: adminTelegramID},
		Payload: events.TicketReassignedPayload{
			Ticket:     *updated,
			MasterID:   masterID,
			MasterName: master.FullName,
		},
	})
	return updated, nil
}

// GetTicket fetches a ticket by internal id.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketID)
}

// GetTicketByCode fetches a ticket by its human-facing code.
func (s *LifecycleService) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"code": code})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// GetHistory returns the audit trail for a ticket, oldest first.
func (s *LifecycleService) GetHistory(ctx context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return entries, nil
}

func (s *LifecycleService) getTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) requireOwner(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	owner, err := s.owners.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewForbidden("owner role required")
		}
		return nil, util.MapError(err)
	}
	return owner, nil
}

func (s *LifecycleService) requireMaster(ctx context.Context, telegramID int64) (*domain.Master, error) {
	master, err := s.masters.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewForbidden("master role required")
		}
		return nil, util.MapError(err)
	}
	return master, nil
}

func (s *LifecycleService) requireAdmin(ctx context.Context, telegramID int64) (*domain.Admin, error) {
	admin, err := s.admins.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewForbidden("admin role required")
		}
		return nil, util.MapError(err)
	}
	return admin, nil
}

func (s *LifecycleService) mapTransitionErr(err error, code, op string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		s.logger.Info("transition lost race", zap.String("code", code), zap.String("op", op))
		return util.NewConflict("ticket already in this state", nil)
	}
	s.logger.Error("transition failed", zap.String("code", code), zap.String("op", op), zap.Error(err))
	return util.MapError(err)
}

func (s *LifecycleService) recordTransition(old, next domain.TicketStatus) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(old), string(next))
	}
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func statusIn(status domain.TicketStatus, set []domain.TicketStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus {
	return &s
}

func rolePtr(r domain.Role) *domain.Role {
	return &r
}
