package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/events"
)

type sentItem struct {
	recipient int64
	text      string
	photo     string
}

type recordingMessenger struct {
	mu      sync.Mutex
	sent    []sentItem
	deliver bool
}

func (m *recordingMessenger) SendMessage(_ context.Context, recipient int64, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentItem{recipient: recipient, text: text})
	return m.deliver
}

func (m *recordingMessenger) SendPhoto(_ context.Context, recipient int64, photoRef, caption string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentItem{recipient: recipient, photo: photoRef, text: caption})
	return m.deliver
}

func (m *recordingMessenger) forRecipient(id int64) []sentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentItem
	for _, s := range m.sent {
		if s.recipient == id {
			out = append(out, s)
		}
	}
	return out
}

type notifyFixture struct {
	svc       *NotificationService
	messenger *recordingMessenger
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()
	ctx := context.Background()

	owners := newMemOwnerRepo()
	masters := newMemMasterRepo()
	admins := newMemAdminRepo()

	ownerTG := testOwnerTG
	if err := owners.Create(ctx, &domain.Owner{
		Phone: "77010000001", FullName: "Owner", ResidentialComplex: testComplex,
		TelegramID: &ownerTG, IsActive: true, Language: "kk",
	}); err != nil {
		t.Fatal(err)
	}
	if err := masters.Create(ctx, &domain.Master{
		TelegramID: testMasterTG, FullName: "Master", ResidentialComplexes: testComplex, IsActive: true, Language: "ru",
	}); err != nil {
		t.Fatal(err)
	}
	// A master of another complex must not be notified.
	if err := masters.Create(ctx, &domain.Master{
		TelegramID: 210, FullName: "Elsewhere", ResidentialComplexes: "OTHER", IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := admins.Create(ctx, &domain.Admin{TelegramID: testAdminTG, FullName: "Admin", Language: "ru"}); err != nil {
		t.Fatal(err)
	}

	texts := &memTextRepo{values: map[string]string{
		"create_submitted|ru":              "Заявка {code} принята.",
		"create_submitted|kk":              "{code} қабылданды.",
		"notify_status_changed|ru":         "Новая заявка: {ticket}",
		"notify_admin_new_ticket|ru":       "Для админа: {ticket}",
		"notify_car_plate_approval|ru":     "Одобрите: {ticket}",
		"notify_car_plate_approved|ru":     "Одобрено {code}",
		"notify_car_plate_approved|kk":     "{code} мақұлданды",
		"notify_car_plate_in_progress|ru":  "В работу: {ticket}",
		"notify_status_with_master|kk":     "{code}: {status}, {master}",
	}}

	messenger := &recordingMessenger{deliver: true}
	svc := NewNotificationService(messenger, NewTextService(texts, nil, nil), owners, masters, admins, nil, nil)
	return &notifyFixture{svc: svc, messenger: messenger}
}

func newEventTicket(category domain.TicketCategory, status domain.TicketStatus) domain.Ticket {
	ticket := domain.Ticket{
		ID:                 1,
		Code:               "QSS-20260829-0001",
		OwnerTelegramID:    testOwnerTG,
		OwnerPhone:         "77010000001",
		OwnerFullName:      "Owner",
		ResidentialComplex: testComplex,
		Category:           category,
		Description:        "test",
		Status:             status,
		CreatedAt:          time.Now(),
	}
	if category == domain.CategoryCarPlate {
		ticket.CarPlate = &domain.CarPlateDetails{Plate: "123ABC01", ContractPhoto: "contract-photo"}
	}
	return ticket
}

func TestCreatedFanOutReachesComplexMastersAndAdmins(t *testing.T) {
	f := newNotifyFixture(t)

	err := f.svc.onTicketCreated(context.Background(), events.Event{
		Type:    events.EventTicketCreated,
		Payload: events.TicketCreatedPayload{Ticket: newEventTicket(domain.CategoryIntercom, domain.TicketStatusNew)},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	ownerMsgs := f.messenger.forRecipient(testOwnerTG)
	if len(ownerMsgs) != 1 || !strings.Contains(ownerMsgs[0].text, "қабылданды") {
		t.Fatalf("owner confirmation missing or wrong language: %+v", ownerMsgs)
	}
	if got := f.messenger.forRecipient(testMasterTG); len(got) != 1 {
		t.Fatalf("complex master notifications = %d, want 1", len(got))
	}
	if got := f.messenger.forRecipient(210); len(got) != 0 {
		t.Fatalf("out-of-complex master must not be notified, got %+v", got)
	}
	if got := f.messenger.forRecipient(testAdminTG); len(got) != 1 {
		t.Fatalf("admin notifications = %d, want 1", len(got))
	}
}

func TestCarPlateCreatedSendsContractPhotoBeforePrompt(t *testing.T) {
	f := newNotifyFixture(t)

	err := f.svc.onTicketCreated(context.Background(), events.Event{
		Type:    events.EventTicketCreated,
		Payload: events.TicketCreatedPayload{Ticket: newEventTicket(domain.CategoryCarPlate, domain.TicketStatusPendingApproval)},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	masterMsgs := f.messenger.forRecipient(testMasterTG)
	if len(masterMsgs) != 2 {
		t.Fatalf("master messages = %d, want photo then prompt", len(masterMsgs))
	}
	if masterMsgs[0].photo != "contract-photo" {
		t.Fatalf("first message must be the contract photo: %+v", masterMsgs[0])
	}
	if !strings.Contains(masterMsgs[1].text, "Одобрите") {
		t.Fatalf("second message must be the approval prompt: %+v", masterMsgs[1])
	}
}

func TestAdminDecisionNotifiesOwnerAndMaster(t *testing.T) {
	f := newNotifyFixture(t)

	ticket := newEventTicket(domain.CategoryCarPlate, domain.TicketStatusInProgress)
	err := f.svc.onCarPlateAdminDecided(context.Background(), events.Event{
		Type: events.EventCarPlateAdminDecided,
		Payload: events.CarPlateAdminDecidedPayload{
			Ticket:           ticket,
			Approved:         true,
			MasterTelegramID: testMasterTG,
		},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	ownerMsgs := f.messenger.forRecipient(testOwnerTG)
	if len(ownerMsgs) != 1 || !strings.Contains(ownerMsgs[0].text, "мақұлданды") {
		t.Fatalf("owner approval notice missing or wrong language: %+v", ownerMsgs)
	}
	masterMsgs := f.messenger.forRecipient(testMasterTG)
	if len(masterMsgs) != 1 || !strings.Contains(masterMsgs[0].text, "В работу") {
		t.Fatalf("master hand-off notice missing: %+v", masterMsgs)
	}
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	f := newNotifyFixture(t)
	f.messenger.deliver = false

	err := f.svc.onTicketCompleted(context.Background(), events.Event{
		Type:    events.EventTicketCompleted,
		Payload: events.TicketCompletedPayload{Ticket: newEventTicket(domain.CategoryIntercom, domain.TicketStatusCompleted)},
	})
	if err != nil {
		t.Fatalf("handler must swallow delivery failures, got %v", err)
	}
}
