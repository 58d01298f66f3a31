package format

import (
	"strings"
	"testing"
	"time"

	"github.com/qss-platform/resident-service/internal/domain"
)

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		ID:                 7,
		Code:               "QSS-20260829-0007",
		OwnerTelegramID:    100,
		OwnerPhone:         "77012345678",
		OwnerFullName:      "Арман Серик",
		ResidentialComplex: "ALMA",
		Category:           domain.CategoryIntercom,
		Block:              "3",
		Entrance:           "2",
		Apartment:          "45",
		Description:        "не открывается дверь",
		Status:             domain.TicketStatusNew,
		CreatedAt:          time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
	}
}

func TestStatusDisplayCoversAllStatuses(t *testing.T) {
	for _, status := range domain.AllStatuses {
		if _, ok := StatusDisplay[status]; !ok {
			t.Errorf("no display name for status %s", status)
		}
	}
}

func TestStatusFallsBackToRawTag(t *testing.T) {
	if got := Status(domain.TicketStatus("weird")); got != "weird" {
		t.Fatalf("got %q", got)
	}
}

func TestTicketCardContents(t *testing.T) {
	card := TicketCard(sampleTicket())

	for _, want := range []string{
		"QSS-20260829-0007",
		"Домофон",
		"ALMA",
		"блок 3, подъезд 2, кв. 45",
		"Арман Серик (77012345678)",
		"не открывается дверь",
		"Новая",
		"29.08.2026 10:30",
	} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}
}

func TestTicketCardCarPlateSection(t *testing.T) {
	ticket := sampleTicket()
	ticket.Category = domain.CategoryCarPlate
	hasParking := true
	ticket.CarPlate = &domain.CarPlateDetails{
		Plate:         "123ABC01",
		Gate:          "Северный",
		HasParking:    &hasParking,
		ParkingNumber: "P-15",
	}

	card := TicketCard(ticket)
	if !strings.Contains(card, "Госномер: 123ABC01") {
		t.Fatalf("plate missing:\n%s", card)
	}
	if !strings.Contains(card, "Паркоместо: P-15") {
		t.Fatalf("parking missing:\n%s", card)
	}
}

func TestHistoryEntryRendering(t *testing.T) {
	oldStatus := domain.TicketStatusNew
	entry := domain.TicketHistoryEntry{
		OldStatus: &oldStatus,
		NewStatus: domain.TicketStatusInProgress,
		Comment:   "Мастер принял заявку",
		ChangedAt: time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC),
	}
	got := HistoryEntry(entry)
	if !strings.Contains(got, "Новая → В работе") {
		t.Fatalf("transition missing: %q", got)
	}
	if !strings.Contains(got, "Мастер принял заявку") {
		t.Fatalf("comment missing: %q", got)
	}
}

func TestHistoryEntrySelfTransition(t *testing.T) {
	status := domain.TicketStatusInProgress
	entry := domain.TicketHistoryEntry{
		OldStatus: &status,
		NewStatus: status,
		Comment:   "Мастер изменен на: Иван",
		ChangedAt: time.Now(),
	}
	got := HistoryEntry(entry)
	if strings.Contains(got, "→") {
		t.Fatalf("self-transition must not render an arrow: %q", got)
	}
}

func TestTicketLine(t *testing.T) {
	got := TicketLine(sampleTicket())
	want := "QSS-20260829-0007 · Домофон · Новая"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
