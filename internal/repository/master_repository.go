package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qss-platform/resident-service/internal/domain"
)

// MasterRepository encapsulates master persistence.
type MasterRepository interface {
	Create(ctx context.Context, master *domain.Master) error
	Update(ctx context.Context, master *domain.Master) error
	GetByID(ctx context.Context, id int64) (*domain.Master, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Master, error)
	// ListByComplex returns active masters whose comma-separated complex list
	// contains the given complex code.
	ListByComplex(ctx context.Context, residentialComplex string) ([]domain.Master, error)
	ListActive(ctx context.Context) ([]domain.Master, error)
	List(ctx context.Context, limit, offset int) ([]domain.Master, error)
	Count(ctx context.Context) (int, error)
	Deactivate(ctx context.Context, masterID int64) error
}

type masterRepository struct {
	pool *pgxpool.Pool
}

// NewMasterRepository instantiates repository.
func NewMasterRepository(pool *pgxpool.Pool) MasterRepository {
	return &masterRepository{pool: pool}
}

const masterColumns = `id, telegram_id, full_name, username, residential_complexes,
        is_active, language, created_at, updated_at`

func (r *masterRepository) Create(ctx context.Context, master *domain.Master) error {
	const query = `
        INSERT INTO masters (telegram_id, full_name, username, residential_complexes, is_active, language)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		master.TelegramID,
		master.FullName,
		nullString(master.Username),
		master.ResidentialComplexes,
		master.IsActive,
		master.Language,
	).Scan(&master.ID, &master.CreatedAt, &master.UpdatedAt)
}

func (r *masterRepository) Update(ctx context.Context, master *domain.Master) error {
	const query = `
        UPDATE masters SET telegram_id=$1, full_name=$2, username=$3, residential_complexes=$4,
            is_active=$5, language=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		master.TelegramID,
		master.FullName,
		nullString(master.Username),
		master.ResidentialComplexes,
		master.IsActive,
		master.Language,
		master.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *masterRepository) GetByID(ctx context.Context, id int64) (*domain.Master, error) {
	return r.fetchSingle(ctx, `SELECT `+masterColumns+` FROM masters WHERE id=$1`, id)
}

func (r *masterRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Master, error) {
	return r.fetchSingle(ctx, `SELECT `+masterColumns+` FROM masters WHERE telegram_id=$1 AND is_active`, telegramID)
}

func (r *masterRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Master, error) {
	var (
		master   domain.Master
		username *string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&master.ID,
		&master.TelegramID,
		&master.FullName,
		&username,
		&master.ResidentialComplexes,
		&master.IsActive,
		&master.Language,
		&master.CreatedAt,
		&master.UpdatedAt,
	); err != nil {
		return nil, err
	}
	master.Username = deref(username)
	return &master, nil
}

func (r *masterRepository) ListByComplex(ctx context.Context, residentialComplex string) ([]domain.Master, error) {
	// Containment on the comma-separated list; exact element match is
	// re-checked in Go via Master.ServesComplex to avoid substring hits.
	const query = `SELECT ` + masterColumns + ` FROM masters
        WHERE is_active AND residential_complexes LIKE '%' || $1 || '%'
        ORDER BY full_name`
	rows, err := r.pool.Query(ctx, query, residentialComplex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates, err := scanMasters(rows)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Master, 0, len(candidates))
	for _, master := range candidates {
		if master.ServesComplex(residentialComplex) {
			result = append(result, master)
		}
	}
	return result, nil
}

func (r *masterRepository) ListActive(ctx context.Context) ([]domain.Master, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+masterColumns+` FROM masters WHERE is_active ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMasters(rows)
}

func (r *masterRepository) List(ctx context.Context, limit, offset int) ([]domain.Master, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+masterColumns+` FROM masters ORDER BY full_name LIMIT $1 OFFSET $2`,
		normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMasters(rows)
}

func (r *masterRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM masters`).Scan(&count)
	return count, err
}

func (r *masterRepository) Deactivate(ctx context.Context, masterID int64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE masters SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, masterID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanMasters(rows pgx.Rows) ([]domain.Master, error) {
	var result []domain.Master
	for rows.Next() {
		var (
			master   domain.Master
			username *string
		)
		if err := rows.Scan(
			&master.ID,
			&master.TelegramID,
			&master.FullName,
			&username,
			&master.ResidentialComplexes,
			&master.IsActive,
			&master.Language,
			&master.CreatedAt,
			&master.UpdatedAt,
		); err != nil {
			return nil, err
		}
		master.Username = deref(username)
		result = append(result, master)
	}
	return result, rows.Err()
}
