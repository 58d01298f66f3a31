package domain

import "time"

// TicketHistoryEntry is an immutable audit record of one status transition.
// OldStatus is nil for the creation entry. OldStatus == NewStatus marks an
// admin reassignment, the one event that is not a status change.
type TicketHistoryEntry struct {
	ID            int64
	TicketID      int64
	OldStatus     *TicketStatus
	NewStatus     TicketStatus
	ChangedByID   *int64
	ChangedByRole *Role
	Comment       string
	ChangedAt     time.Time
}
