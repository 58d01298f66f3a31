package domain

import "testing"

func TestInitialStatus(t *testing.T) {
	if got := CategoryCarPlate.InitialStatus(); got != TicketStatusPendingApproval {
		t.Fatalf("car_plate initial status = %s", got)
	}
	for _, c := range []TicketCategory{CategoryCCTV, CategoryFaceID, CategoryCameraAccess, CategoryIntercom, CategoryKeyMagnet, CategoryOther} {
		if got := c.InitialStatus(); got != TicketStatusNew {
			t.Fatalf("%s initial status = %s, want new", c, got)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to TicketStatus }{
		{TicketStatusNew, TicketStatusInProgress},
		{TicketStatusNew, TicketStatusCompleted},
		{TicketStatusInProgress, TicketStatusCompleted},
		{TicketStatusCompleted, TicketStatusClosed},
		{TicketStatusPendingApproval, TicketStatusMasterApproved},
		{TicketStatusPendingApproval, TicketStatusMasterRejected},
		{TicketStatusPendingApproval, TicketStatusInProgress},
		{TicketStatusMasterApproved, TicketStatusInProgress},
		{TicketStatusMasterRejected, TicketStatusRejected},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to TicketStatus }{
		{TicketStatusClosed, TicketStatusNew},
		{TicketStatusRejected, TicketStatusInProgress},
		{TicketStatusCompleted, TicketStatusInProgress},
		{TicketStatusNew, TicketStatusClosed},
		{TicketStatusCancelled, TicketStatusInProgress},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestSelfTransitionAlwaysAllowed(t *testing.T) {
	for _, status := range AllStatuses {
		if !CanTransition(status, status) {
			t.Errorf("self-transition for %s should be allowed", status)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range AllStatuses {
		if !ValidStatus(status) {
			t.Errorf("%s should be valid", status)
		}
	}
	if ValidStatus("nope") {
		t.Error("unknown tag accepted")
	}
}

func TestServesComplex(t *testing.T) {
	m := Master{ResidentialComplexes: "ALMA, NOVA"}
	if !m.ServesComplex("ALMA") || !m.ServesComplex("NOVA") {
		t.Fatal("listed complexes must match")
	}
	if m.ServesComplex("ALM") {
		t.Fatal("substring must not match")
	}
	if m.ServesComplex("") {
		t.Fatal("empty code must not match")
	}
}
