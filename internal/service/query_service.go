package service

import (
	"context"
	"strings"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/pkg/util"
)

// TicketPage is one page of a ticket list.
type TicketPage struct {
	Tickets    []domain.Ticket
	Total      int
	Page       int
	TotalPages int
}

// QueryService serves the read side: owner ticket lists, master work queues
// and the admin's filtered dashboard list.
type QueryService struct {
	tickets repository.TicketRepository
	masters repository.MasterRepository
}

func NewQueryService(tickets repository.TicketRepository, masters repository.MasterRepository) *QueryService {
	return &QueryService{tickets: tickets, masters: masters}
}

// OwnerTickets lists an owner's tickets, newest first.
func (s *QueryService) OwnerTickets(ctx context.Context, ownerTelegramID int64, page int) (*TicketPage, error) {
	total, err := s.tickets.CountByOwner(ctx, ownerTelegramID)
	if err != nil {
		return nil, util.MapError(err)
	}
	offset, limit, totalPages := util.Paginate(total, page, util.DefaultPageSize)
	tickets, err := s.tickets.ListByOwner(ctx, ownerTelegramID, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, TotalPages: totalPages}, nil
}

// activeWorkStatuses is what a master's "my tickets" queue shows: claimed
// work plus car-plate reviews still awaiting the admin decision.
var activeWorkStatuses = []domain.TicketStatus{
	domain.TicketStatusInProgress,
	domain.TicketStatusMasterApproved,
	domain.TicketStatusMasterRejected,
}

// MasterQueue lists tickets currently assigned to a master.
func (s *QueryService) MasterQueue(ctx context.Context, masterID int64, page int) (*TicketPage, error) {
	total, err := s.tickets.CountByMaster(ctx, masterID, activeWorkStatuses)
	if err != nil {
		return nil, util.MapError(err)
	}
	offset, limit, totalPages := util.Paginate(total, page, util.DefaultPageSize)
	tickets, err := s.tickets.ListByMaster(ctx, masterID, activeWorkStatuses, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, TotalPages: totalPages}, nil
}

// AvailableTickets lists unassigned new and pending tickets in the complexes
// a master serves.
func (s *QueryService) AvailableTickets(ctx context.Context, masterTelegramID int64, page int) (*TicketPage, error) {
	master, err := s.masters.GetByTelegramID(ctx, masterTelegramID)
	if err != nil {
		return nil, util.MapError(err)
	}
	complexes := splitComplexes(master.ResidentialComplexes)
	if len(complexes) == 0 {
		return &TicketPage{Page: 1, TotalPages: 1}, nil
	}

	total, err := s.tickets.CountNewForComplexes(ctx, complexes)
	if err != nil {
		return nil, util.MapError(err)
	}
	offset, limit, totalPages := util.Paginate(total, page, util.DefaultPageSize)
	tickets, err := s.tickets.ListNewForComplexes(ctx, complexes, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, TotalPages: totalPages}, nil
}

// FilteredTickets serves the admin dashboard list.
func (s *QueryService) FilteredTickets(ctx context.Context, filter repository.TicketFilter, page, perPage int) (*TicketPage, error) {
	total, err := s.tickets.CountFiltered(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	offset, limit, totalPages := util.Paginate(total, page, perPage)
	filter.Limit = limit
	filter.Offset = offset
	tickets, err := s.tickets.ListFiltered(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, TotalPages: totalPages}, nil
}

func splitComplexes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
