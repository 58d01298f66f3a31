package service

import (
	"context"
	"testing"

	"github.com/qss-platform/resident-service/internal/domain"
)

func TestAvailableTicketsFiltersByComplexAndAssignment(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first := f.createTicket(t, domain.CategoryIntercom)
	f.createTicket(t, domain.CategoryCCTV)
	carPlate := f.createTicket(t, domain.CategoryCarPlate)

	queries := NewQueryService(f.tickets, f.masters)

	page, err := queries.AvailableTickets(ctx, testMasterTG, 1)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	// New and pending tickets are both offered to the complex's masters.
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}

	if _, err := f.svc.AcceptTicket(ctx, testMasterTG, first.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.ReviewByMaster(ctx, testMasterTG, carPlate.ID, true); err != nil {
		t.Fatalf("review: %v", err)
	}

	page, err = queries.AvailableTickets(ctx, testMasterTG, 1)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total after claiming = %d, want 1", page.Total)
	}
}

func TestMasterQueueShowsClaimedWork(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	ticket := f.createTicket(t, domain.CategoryIntercom)
	if _, err := f.svc.AcceptTicket(ctx, testMasterTG, ticket.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	queries := NewQueryService(f.tickets, f.masters)
	page, err := queries.MasterQueue(ctx, f.masterID, 1)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if page.Total != 1 || page.Tickets[0].ID != ticket.ID {
		t.Fatalf("unexpected queue: %+v", page)
	}

	if _, err := f.svc.CompleteTicket(ctx, testMasterTG, ticket.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	page, err = queries.MasterQueue(ctx, f.masterID, 1)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("completed work must leave the queue, total = %d", page.Total)
	}
}

func TestMasterQueueKeepsReviewedCarPlateTickets(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	approved := f.createTicket(t, domain.CategoryCarPlate)
	if _, err := f.svc.ReviewByMaster(ctx, testMasterTG, approved.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	rejected := f.createTicket(t, domain.CategoryCarPlate)
	if _, err := f.svc.ReviewByMaster(ctx, testMasterTG, rejected.ID, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	queries := NewQueryService(f.tickets, f.masters)
	page, err := queries.MasterQueue(ctx, f.masterID, 1)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("reviewed tickets awaiting the admin must stay queued, total = %d", page.Total)
	}
}

func TestOwnerTicketsPaging(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		f.createTicket(t, domain.CategoryOther)
	}

	queries := NewQueryService(f.tickets, f.masters)
	page, err := queries.OwnerTickets(ctx, testOwnerTG, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 7 || page.TotalPages != 2 {
		t.Fatalf("total = %d, pages = %d", page.Total, page.TotalPages)
	}
	if len(page.Tickets) != 5 {
		t.Fatalf("page size = %d, want 5", len(page.Tickets))
	}
}
