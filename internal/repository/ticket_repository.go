package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qss-platform/resident-service/internal/domain"
)

// Sentinel errors surfaced by ticket persistence.
var (
	// ErrStatusConflict reports a lost compare-and-set: the ticket was not in
	// any of the expected statuses when the conditional update ran.
	ErrStatusConflict = errors.New("ticket not in expected status")
	// ErrDailyQuotaExceeded reports the per-owner daily creation cap.
	ErrDailyQuotaExceeded = errors.New("daily ticket quota exceeded")
)

// creationLockKey serializes ticket creation so the daily quota check and the
// per-day code sequence cannot race across concurrent submissions.
const creationLockKey = 7712001

// TicketFilter captures dashboard and listing search parameters.
type TicketFilter struct {
	Status             *domain.TicketStatus
	ResidentialComplex *string
	MasterID           *int64
	DateFrom           *time.Time
	DateTo             *time.Time
	Limit              int
	Offset             int
}

// StatusTransition describes one atomic status change. The conditional update
// succeeds only while the ticket status is in From; the history entry commits
// in the same transaction or not at all.
type StatusTransition struct {
	TicketID       int64
	From           []domain.TicketStatus
	To             domain.TicketStatus
	AssignMasterID *int64
	Entry          domain.TicketHistoryEntry
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts the ticket with a generated QSS code and its creation
	// history entry in one serialized transaction. maxPerDay <= 0 disables
	// the quota guard.
	Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistoryEntry, maxPerDay int) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerTelegramID int64, limit, offset int) ([]domain.Ticket, error)
	CountByOwner(ctx context.Context, ownerTelegramID int64) (int, error)
	ListByMaster(ctx context.Context, masterID int64, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error)
	CountByMaster(ctx context.Context, masterID int64, statuses []domain.TicketStatus) (int, error)
	ListNewForComplexes(ctx context.Context, complexes []string, limit, offset int) ([]domain.Ticket, error)
	CountNewForComplexes(ctx context.Context, complexes []string) (int, error)
	ListFiltered(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountFiltered(ctx context.Context, filter TicketFilter) (int, error)
	CountToday(ctx context.Context, ownerTelegramID int64) (int, error)
	// Transition applies a compare-and-set status change plus its history
	// entry atomically. Returns ErrStatusConflict when the CAS matches no row.
	Transition(ctx context.Context, t StatusTransition) (*domain.Ticket, error)
	// SetRating closes a completed ticket with a rating, atomically with its
	// history entry. CAS on status=completed.
	SetRating(ctx context.Context, ticketID int64, rating int, comment *string, entry domain.TicketHistoryEntry) (*domain.Ticket, error)
	// ReassignMaster changes the assignee without touching status, logging a
	// self-transition history entry.
	ReassignMaster(ctx context.Context, ticketID, masterID int64, entry domain.TicketHistoryEntry) error
	// ApprovingMasterID resolves the telegram id of the master whose review
	// moved the ticket to master_approved, from the most recent matching
	// history entry.
	ApprovingMasterID(ctx context.Context, ticketID int64) (*int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, code, owner_telegram_id, owner_phone, owner_full_name,
        residential_complex, category, sub_category, block, entrance, apartment,
        description, attachments, face_id_photos,
        car_plate, car_gate, has_parking, parking_number, parking_reason, parking_contract_photo,
        camera_access_email, camera_access_details, key_count, key_type,
        status, assigned_master_id, completed_at, rating, rating_comment, rated_at,
        created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistoryEntry, maxPerDay int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, creationLockKey); err != nil {
		return err
	}

	if maxPerDay > 0 {
		var ownerToday int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM tickets WHERE owner_telegram_id=$1 AND created_at::date = CURRENT_DATE`,
			ticket.OwnerTelegramID,
		).Scan(&ownerToday)
		if err != nil {
			return err
		}
		if ownerToday >= maxPerDay {
			return ErrDailyQuotaExceeded
		}
	}

	var todayTotal int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE created_at::date = CURRENT_DATE`,
	).Scan(&todayTotal); err != nil {
		return err
	}
	ticket.Code = fmt.Sprintf("QSS-%s-%04d", time.Now().Format("20060102"), todayTotal+1)

	car := ticket.CarPlate
	if car == nil {
		car = &domain.CarPlateDetails{}
	}
	cam := ticket.CameraAccess
	if cam == nil {
		cam = &domain.CameraAccessDetails{}
	}
	keys := ticket.Keys
	if keys == nil {
		keys = &domain.KeyDetails{}
	}

	const insert = `
        INSERT INTO tickets (code, owner_telegram_id, owner_phone, owner_full_name,
            residential_complex, category, sub_category, block, entrance, apartment,
            description, attachments, face_id_photos,
            car_plate, car_gate, has_parking, parking_number, parking_reason, parking_contract_photo,
            camera_access_email, camera_access_details, key_count, key_type,
            status, assigned_master_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, insert,
		ticket.Code,
		ticket.OwnerTelegramID,
		ticket.OwnerPhone,
		ticket.OwnerFullName,
		ticket.ResidentialComplex,
		ticket.Category,
		nullString(ticket.SubCategory),
		nullString(ticket.Block),
		nullString(ticket.Entrance),
		nullString(ticket.Apartment),
		ticket.Description,
		ticket.Attachments,
		ticket.FaceIDPhotos,
		nullString(car.Plate),
		nullString(car.Gate),
		car.HasParking,
		nullString(car.ParkingNumber),
		nullString(car.ParkingReason),
		nullString(car.ContractPhoto),
		nullString(cam.Email),
		nullString(cam.Details),
		nullInt(keys.Count),
		nullString(keys.Type),
		ticket.Status,
		ticket.AssignedMasterID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return err
	}

	entry.TicketID = ticket.ID
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanTicket(row)
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerTelegramID int64, limit, offset int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_telegram_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ownerTelegramID, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByOwner(ctx context.Context, ownerTelegramID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE owner_telegram_id=$1`, ownerTelegramID,
	).Scan(&count)
	return count, err
}

func (r *ticketRepository) ListByMaster(ctx context.Context, masterID int64, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE assigned_master_id=$1`
	args := []any{masterID}
	if len(statuses) > 0 {
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	args = append(args, normalizeLimit(limit), normalizeOffset(offset))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByMaster(ctx context.Context, masterID int64, statuses []domain.TicketStatus) (int, error) {
	query := `SELECT COUNT(*) FROM tickets WHERE assigned_master_id=$1`
	args := []any{masterID}
	if len(statuses) > 0 {
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// ListNewForComplexes returns unassigned tickets awaiting a master in any of
// the given complexes: status new or pending_approval, no assignee yet.
func (r *ticketRepository) ListNewForComplexes(ctx context.Context, complexes []string, limit, offset int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE status = ANY($1) AND assigned_master_id IS NULL AND residential_complex = ANY($2)
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, openStatuses(), complexes, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountNewForComplexes(ctx context.Context, complexes []string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets
         WHERE status = ANY($1) AND assigned_master_id IS NULL AND residential_complex = ANY($2)`,
		openStatuses(), complexes,
	).Scan(&count)
	return count, err
}

func openStatuses() []domain.TicketStatus {
	return []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusPendingApproval}
}

func (r *ticketRepository) ListFiltered(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountFiltered(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func filterClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.ResidentialComplex != nil {
		args = append(args, *filter.ResidentialComplex)
		clauses = append(clauses, fmt.Sprintf("residential_complex=$%d", len(args)))
	}
	if filter.MasterID != nil {
		args = append(args, *filter.MasterID)
		clauses = append(clauses, fmt.Sprintf("assigned_master_id=$%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		clauses = append(clauses, fmt.Sprintf("created_at::date >= $%d::date", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		clauses = append(clauses, fmt.Sprintf("created_at::date <= $%d::date", len(args)))
	}
	return clauses, args
}

func (r *ticketRepository) CountToday(ctx context.Context, ownerTelegramID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE owner_telegram_id=$1 AND created_at::date = CURRENT_DATE`,
		ownerTelegramID,
	).Scan(&count)
	return count, err
}

func (r *ticketRepository) Transition(ctx context.Context, t StatusTransition) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `UPDATE tickets SET status=$1, updated_at=NOW(),
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
            assigned_master_id = COALESCE($2, assigned_master_id)
        WHERE id=$3`
	args := []any{t.To, t.AssignMasterID, t.TicketID}
	if len(t.From) > 0 {
		args = append(args, t.From)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	query += " RETURNING " + ticketColumns

	ticket, err := scanTicket(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, err
	}

	t.Entry.TicketID = t.TicketID
	if err := insertHistory(ctx, tx, &t.Entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) SetRating(ctx context.Context, ticketID int64, rating int, comment *string, entry domain.TicketHistoryEntry) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `UPDATE tickets SET rating=$1, rating_comment=$2, rated_at=NOW(),
            status='closed', updated_at=NOW()
        WHERE id=$3 AND status='completed'
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(tx.QueryRow(ctx, query, rating, comment, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, err
	}

	entry.TicketID = ticketID
	if err := insertHistory(ctx, tx, &entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ReassignMaster(ctx context.Context, ticketID, masterID int64, entry domain.TicketHistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx,
		`UPDATE tickets SET assigned_master_id=$1, updated_at=NOW() WHERE id=$2`,
		masterID, ticketID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	entry.TicketID = ticketID
	if err := insertHistory(ctx, tx, &entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) ApprovingMasterID(ctx context.Context, ticketID int64) (*int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT changed_by_id FROM ticket_history
         WHERE ticket_id=$1 AND new_status=$2 AND changed_by_role=$3
         ORDER BY changed_at DESC LIMIT 1`,
		ticketID, domain.TicketStatusMasterApproved, domain.RoleMaster,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry *domain.TicketHistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, old_status, new_status, changed_by_id, changed_by_role, comment)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, changed_at`
	return tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedByID,
		entry.ChangedByRole,
		entry.Comment,
	).Scan(&entry.ID, &entry.ChangedAt)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket        domain.Ticket
		subCategory   *string
		block         *string
		entrance      *string
		apartment     *string
		carPlate      *string
		carGate       *string
		hasParking    *bool
		parkingNumber *string
		parkingReason *string
		contractPhoto *string
		cameraEmail   *string
		cameraDetails *string
		keyCount      *int
		keyType       *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.OwnerTelegramID,
		&ticket.OwnerPhone,
		&ticket.OwnerFullName,
		&ticket.ResidentialComplex,
		&ticket.Category,
		&subCategory,
		&block,
		&entrance,
		&apartment,
		&ticket.Description,
		&ticket.Attachments,
		&ticket.FaceIDPhotos,
		&carPlate,
		&carGate,
		&hasParking,
		&parkingNumber,
		&parkingReason,
		&contractPhoto,
		&cameraEmail,
		&cameraDetails,
		&keyCount,
		&keyType,
		&ticket.Status,
		&ticket.AssignedMasterID,
		&ticket.CompletedAt,
		&ticket.Rating,
		&ticket.RatingComment,
		&ticket.RatedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}

	ticket.SubCategory = deref(subCategory)
	ticket.Block = deref(block)
	ticket.Entrance = deref(entrance)
	ticket.Apartment = deref(apartment)

	if carPlate != nil || carGate != nil || hasParking != nil || parkingNumber != nil || parkingReason != nil || contractPhoto != nil {
		ticket.CarPlate = &domain.CarPlateDetails{
			Plate:         deref(carPlate),
			Gate:          deref(carGate),
			HasParking:    hasParking,
			ParkingNumber: deref(parkingNumber),
			ParkingReason: deref(parkingReason),
			ContractPhoto: deref(contractPhoto),
		}
	}
	if cameraEmail != nil || cameraDetails != nil {
		ticket.CameraAccess = &domain.CameraAccessDetails{
			Email:   deref(cameraEmail),
			Details: deref(cameraDetails),
		}
	}
	if keyCount != nil || keyType != nil {
		keys := &domain.KeyDetails{Type: deref(keyType)}
		if keyCount != nil {
			keys.Count = *keyCount
		}
		ticket.Keys = keys
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
