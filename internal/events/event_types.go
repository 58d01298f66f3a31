package events

import (
	"time"

	"github.com/qss-platform/resident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketAccepted         EventType = "ticket_accepted"
	EventTicketCompleted        EventType = "ticket_completed"
	EventTicketRated            EventType = "ticket_rated"
	EventCarPlateMasterReviewed EventType = "car_plate_master_reviewed"
	EventCarPlateAdminDecided   EventType = "car_plate_admin_decided"
	EventTicketReassigned       EventType = "ticket_reassigned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role       domain.Role `json:"role"`
	TelegramID int64       `json:"telegram_id"`
}

// Event represents a domain event emitted after a committed transition.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketAcceptedPayload payload.
type TicketAcceptedPayload struct {
	Ticket     domain.Ticket `json:"ticket"`
	MasterName string        `json:"master_name"`
}

// TicketCompletedPayload payload.
type TicketCompletedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Ticket  domain.Ticket `json:"ticket"`
	Rating  int           `json:"rating"`
	Comment *string       `json:"comment,omitempty"`
}

// CarPlateMasterReviewedPayload payload.
type CarPlateMasterReviewedPayload struct {
	Ticket   domain.Ticket `json:"ticket"`
	Approved bool          `json:"approved"`
}

// CarPlateAdminDecidedPayload payload.
type CarPlateAdminDecidedPayload struct {
	Ticket   domain.Ticket `json:"ticket"`
	Approved bool          `json:"approved"`
	// MasterTelegramID is the approving master handed the ticket on final
	// approval; zero when no master could be resolved.
	MasterTelegramID int64 `json:"master_telegram_id,omitempty"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	Ticket     domain.Ticket `json:"ticket"`
	MasterID   int64         `json:"master_id"`
	MasterName string        `json:"master_name"`
}
