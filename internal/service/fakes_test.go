package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/events"
	"github.com/qss-platform/resident-service/internal/repository"
)

// memTicketRepo mirrors the transactional semantics of the real repository:
// transitions are compare-and-set, history commits together with the status
// change, codes follow the daily sequence.
type memTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
	entries []domain.TicketHistoryEntry
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: map[int64]*domain.Ticket{}}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket, entry *domain.TicketHistoryEntry, maxPerDay int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	today := time.Now().Format("20060102")
	ownerToday, total := 0, 0
	for _, t := range r.tickets {
		if t.CreatedAt.Format("20060102") != today {
			continue
		}
		total++
		if t.OwnerTelegramID == ticket.OwnerTelegramID {
			ownerToday++
		}
	}
	if maxPerDay > 0 && ownerToday >= maxPerDay {
		return repository.ErrDailyQuotaExceeded
	}

	r.nextID++
	ticket.ID = r.nextID
	ticket.Code = fmt.Sprintf("QSS-%s-%04d", today, total+1)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets[ticket.ID] = &stored

	entry.TicketID = ticket.ID
	entry.ChangedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.Code == code {
			copied := *t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) ListByOwner(_ context.Context, ownerTelegramID int64, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.OwnerTelegramID == ownerTelegramID {
			out = append(out, *t)
		}
	}
	return pageSlice(out, limit, offset), nil
}

func (r *memTicketRepo) CountByOwner(_ context.Context, ownerTelegramID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tickets {
		if t.OwnerTelegramID == ownerTelegramID {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) ListByMaster(_ context.Context, masterID int64, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.AssignedMasterID != nil && *t.AssignedMasterID == masterID && statusInSet(t.Status, statuses) {
			out = append(out, *t)
		}
	}
	return pageSlice(out, limit, offset), nil
}

func (r *memTicketRepo) CountByMaster(_ context.Context, masterID int64, statuses []domain.TicketStatus) (int, error) {
	items, _ := r.ListByMaster(context.Background(), masterID, statuses, 0, 0)
	return len(items), nil
}

func (r *memTicketRepo) ListNewForComplexes(_ context.Context, complexes []string, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.AssignedMasterID != nil {
			continue
		}
		if t.Status != domain.TicketStatusNew && t.Status != domain.TicketStatusPendingApproval {
			continue
		}
		for _, c := range complexes {
			if t.ResidentialComplex == c {
				out = append(out, *t)
				break
			}
		}
	}
	return pageSlice(out, limit, offset), nil
}

func (r *memTicketRepo) CountNewForComplexes(_ context.Context, complexes []string) (int, error) {
	items, _ := r.ListNewForComplexes(context.Background(), complexes, 0, 0)
	return len(items), nil
}

func (r *memTicketRepo) ListFiltered(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.ResidentialComplex != nil && t.ResidentialComplex != *filter.ResidentialComplex {
			continue
		}
		out = append(out, *t)
	}
	return pageSlice(out, filter.Limit, filter.Offset), nil
}

func (r *memTicketRepo) CountFiltered(_ context.Context, filter repository.TicketFilter) (int, error) {
	filter.Limit, filter.Offset = 0, 0
	items, _ := r.ListFiltered(context.Background(), filter)
	return len(items), nil
}

func (r *memTicketRepo) CountToday(_ context.Context, ownerTelegramID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	today := time.Now().Format("20060102")
	count := 0
	for _, t := range r.tickets {
		if t.OwnerTelegramID == ownerTelegramID && t.CreatedAt.Format("20060102") == today {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) Transition(_ context.Context, tr repository.StatusTransition) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[tr.TicketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if len(tr.From) > 0 && !statusInSet(t.Status, tr.From) {
		return nil, repository.ErrStatusConflict
	}
	t.Status = tr.To
	t.UpdatedAt = time.Now()
	if tr.To == domain.TicketStatusCompleted {
		now := time.Now()
		t.CompletedAt = &now
	}
	if tr.AssignMasterID != nil {
		id := *tr.AssignMasterID
		t.AssignedMasterID = &id
	}
	entry := tr.Entry
	entry.TicketID = tr.TicketID
	entry.ChangedAt = time.Now()
	r.entries = append(r.entries, entry)
	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) SetRating(_ context.Context, ticketID int64, rating int, comment *string, entry domain.TicketHistoryEntry) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if t.Status != domain.TicketStatusCompleted {
		return nil, repository.ErrStatusConflict
	}
	now := time.Now()
	t.Status = domain.TicketStatusClosed
	t.Rating = &rating
	t.RatingComment = comment
	t.RatedAt = &now
	t.UpdatedAt = now
	entry.TicketID = ticketID
	entry.ChangedAt = now
	r.entries = append(r.entries, entry)
	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) ReassignMaster(_ context.Context, ticketID, masterID int64, entry domain.TicketHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.AssignedMasterID = &masterID
	t.UpdatedAt = time.Now()
	entry.TicketID = ticketID
	entry.ChangedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memTicketRepo) ApprovingMasterID(_ context.Context, ticketID int64) (*int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.TicketID != ticketID || e.NewStatus != domain.TicketStatusMasterApproved {
			continue
		}
		if e.ChangedByRole == nil || *e.ChangedByRole != domain.RoleMaster || e.ChangedByID == nil {
			continue
		}
		id := *e.ChangedByID
		return &id, nil
	}
	return nil, nil
}

func (r *memTicketRepo) historyFor(ticketID int64) []domain.TicketHistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistoryEntry
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out
}

// memHistoryRepo reads from the shared entry log.
type memHistoryRepo struct {
	tickets *memTicketRepo
}

func (r *memHistoryRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error) {
	return r.tickets.historyFor(ticketID), nil
}

type memOwnerRepo struct {
	mu     sync.Mutex
	nextID int64
	owners map[int64]*domain.Owner
}

func newMemOwnerRepo() *memOwnerRepo {
	return &memOwnerRepo{owners: map[int64]*domain.Owner{}}
}

func (r *memOwnerRepo) Create(_ context.Context, owner *domain.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	owner.ID = r.nextID
	owner.CreatedAt = time.Now()
	stored := *owner
	r.owners[owner.ID] = &stored
	return nil
}

func (r *memOwnerRepo) Update(_ context.Context, owner *domain.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[owner.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *owner
	r.owners[owner.ID] = &stored
	return nil
}

func (r *memOwnerRepo) GetByID(_ context.Context, id int64) (*domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *o
	return &copied, nil
}

func (r *memOwnerRepo) GetByPhone(_ context.Context, phone string) (*domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.owners {
		if o.Phone == phone && o.IsActive {
			copied := *o
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memOwnerRepo) GetByTelegramID(_ context.Context, telegramID int64) (*domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.owners {
		if o.TelegramID != nil && *o.TelegramID == telegramID && o.IsActive {
			copied := *o
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memOwnerRepo) LinkTelegramID(_ context.Context, ownerID, telegramID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[ownerID]
	if !ok {
		return pgx.ErrNoRows
	}
	o.TelegramID = &telegramID
	return nil
}

func (r *memOwnerRepo) SetLanguage(_ context.Context, ownerID int64, language string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[ownerID]
	if !ok {
		return pgx.ErrNoRows
	}
	o.Language = language
	return nil
}

func (r *memOwnerRepo) List(_ context.Context, limit, offset int) ([]domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Owner
	for _, o := range r.owners {
		out = append(out, *o)
	}
	return out, nil
}

func (r *memOwnerRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners), nil
}

func (r *memOwnerRepo) Deactivate(_ context.Context, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[ownerID]
	if !ok {
		return pgx.ErrNoRows
	}
	o.IsActive = false
	return nil
}

type memMasterRepo struct {
	mu      sync.Mutex
	nextID  int64
	masters map[int64]*domain.Master
}

func newMemMasterRepo() *memMasterRepo {
	return &memMasterRepo{masters: map[int64]*domain.Master{}}
}

func (r *memMasterRepo) Create(_ context.Context, master *domain.Master) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	master.ID = r.nextID
	master.CreatedAt = time.Now()
	stored := *master
	r.masters[master.ID] = &stored
	return nil
}

func (r *memMasterRepo) Update(_ context.Context, master *domain.Master) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.masters[master.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *master
	r.masters[master.ID] = &stored
	return nil
}

func (r *memMasterRepo) GetByID(_ context.Context, id int64) (*domain.Master, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.masters[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *m
	return &copied, nil
}

func (r *memMasterRepo) GetByTelegramID(_ context.Context, telegramID int64) (*domain.Master, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.masters {
		if m.TelegramID == telegramID && m.IsActive {
			copied := *m
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memMasterRepo) ListByComplex(_ context.Context, residentialComplex string) ([]domain.Master, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Master
	for _, m := range r.masters {
		if m.IsActive && m.ServesComplex(residentialComplex) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memMasterRepo) ListActive(_ context.Context) ([]domain.Master, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Master
	for _, m := range r.masters {
		if m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memMasterRepo) List(_ context.Context, limit, offset int) ([]domain.Master, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Master
	for _, m := range r.masters {
		out = append(out, *m)
	}
	return out, nil
}

func (r *memMasterRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.masters), nil
}

func (r *memMasterRepo) Deactivate(_ context.Context, masterID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.masters[masterID]
	if !ok {
		return pgx.ErrNoRows
	}
	m.IsActive = false
	return nil
}

type memAdminRepo struct {
	mu     sync.Mutex
	nextID int64
	admins map[int64]*domain.Admin
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{admins: map[int64]*domain.Admin{}}
}

func (r *memAdminRepo) GetByTelegramID(_ context.Context, telegramID int64) (*domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.TelegramID == telegramID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAdminRepo) ListAll(_ context.Context) ([]domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Admin
	for _, a := range r.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (r *memAdminRepo) Create(_ context.Context, admin *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	admin.ID = r.nextID
	stored := *admin
	r.admins[admin.ID] = &stored
	return nil
}

func (r *memAdminRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.admins, id)
	return nil
}

// memTextRepo is a fixed template table.
type memTextRepo struct {
	values map[string]string // "key|language" -> value
}

func (r *memTextRepo) GetValue(_ context.Context, key, language string) (string, bool, error) {
	v, ok := r.values[key+"|"+language]
	return v, ok, nil
}

func (r *memTextRepo) ListAll(_ context.Context) ([]domain.BotText, error) {
	var out []domain.BotText
	for k, v := range r.values {
		out = append(out, domain.BotText{Key: k, Value: v})
	}
	return out, nil
}

func (r *memTextRepo) Upsert(_ context.Context, text *domain.BotText) error {
	r.values[text.Key+"|"+text.Language] = text.Value
	return nil
}

// eventRecorder captures published events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) Subscribe(events.EventType, events.EventHandler) {}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func statusInSet(status domain.TicketStatus, set []domain.TicketStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func pageSlice(items []domain.Ticket, limit, offset int) []domain.Ticket {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// interposingTicketRepo runs a queued callback once after a successful read,
// simulating a writer that commits between the engine's read and its CAS.
type interposingTicketRepo struct {
	repository.TicketRepository
	afterRead func()
}

func (r *interposingTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := r.TicketRepository.GetByID(ctx, id)
	if err == nil && r.afterRead != nil {
		fn := r.afterRead
		r.afterRead = nil
		fn()
	}
	return ticket, err
}
