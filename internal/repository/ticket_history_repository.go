package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qss-platform/resident-service/internal/domain"
)

// TicketHistoryRepository reads the append-only audit trail. Entries are
// written only by TicketRepository, inside transition transactions.
type TicketHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error) {
	// Ordered by changed_at, not id: display order must follow commit time
	// even under clock skew between writers.
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by_id, changed_by_role, comment, changed_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY changed_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistoryEntry
	for rows.Next() {
		var (
			entry   domain.TicketHistoryEntry
			comment *string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedByID,
			&entry.ChangedByRole,
			&comment,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		if comment != nil {
			entry.Comment = *comment
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
