package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qss-platform/resident-service/internal/domain"
)

// OwnerRepository encapsulates owner persistence.
type OwnerRepository interface {
	Create(ctx context.Context, owner *domain.Owner) error
	Update(ctx context.Context, owner *domain.Owner) error
	GetByID(ctx context.Context, id int64) (*domain.Owner, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Owner, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Owner, error)
	LinkTelegramID(ctx context.Context, ownerID, telegramID int64) error
	SetLanguage(ctx context.Context, ownerID int64, language string) error
	List(ctx context.Context, limit, offset int) ([]domain.Owner, error)
	Count(ctx context.Context) (int, error)
	Deactivate(ctx context.Context, ownerID int64) error
}

type ownerRepository struct {
	pool *pgxpool.Pool
}

// NewOwnerRepository instantiates repository.
func NewOwnerRepository(pool *pgxpool.Pool) OwnerRepository {
	return &ownerRepository{pool: pool}
}

const ownerColumns = `id, phone, full_name, residential_complex, block, entrance, apartment,
        telegram_id, is_active, language, created_at, updated_at`

func (r *ownerRepository) Create(ctx context.Context, owner *domain.Owner) error {
	const query = `
        INSERT INTO owners (phone, full_name, residential_complex, block, entrance, apartment, telegram_id, is_active, language)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		owner.Phone,
		owner.FullName,
		owner.ResidentialComplex,
		nullString(owner.Block),
		nullString(owner.Entrance),
		nullString(owner.Apartment),
		owner.TelegramID,
		owner.IsActive,
		owner.Language,
	).Scan(&owner.ID, &owner.CreatedAt, &owner.UpdatedAt)
}

func (r *ownerRepository) Update(ctx context.Context, owner *domain.Owner) error {
	const query = `
        UPDATE owners SET phone=$1, full_name=$2, residential_complex=$3, block=$4, entrance=$5,
            apartment=$6, is_active=$7, language=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		owner.Phone,
		owner.FullName,
		owner.ResidentialComplex,
		nullString(owner.Block),
		nullString(owner.Entrance),
		nullString(owner.Apartment),
		owner.IsActive,
		owner.Language,
		owner.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ownerRepository) GetByID(ctx context.Context, id int64) (*domain.Owner, error) {
	return r.fetchSingle(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id=$1`, id)
}

func (r *ownerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Owner, error) {
	return r.fetchSingle(ctx, `SELECT `+ownerColumns+` FROM owners WHERE phone=$1 AND is_active`, phone)
}

func (r *ownerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	return r.fetchSingle(ctx, `SELECT `+ownerColumns+` FROM owners WHERE telegram_id=$1 AND is_active`, telegramID)
}

func (r *ownerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Owner, error) {
	var (
		owner     domain.Owner
		block     *string
		entrance  *string
		apartment *string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&owner.ID,
		&owner.Phone,
		&owner.FullName,
		&owner.ResidentialComplex,
		&block,
		&entrance,
		&apartment,
		&owner.TelegramID,
		&owner.IsActive,
		&owner.Language,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	); err != nil {
		return nil, err
	}
	owner.Block = deref(block)
	owner.Entrance = deref(entrance)
	owner.Apartment = deref(apartment)
	return &owner, nil
}

func (r *ownerRepository) LinkTelegramID(ctx context.Context, ownerID, telegramID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE owners SET telegram_id=$1, updated_at=NOW() WHERE id=$2`,
		telegramID, ownerID,
	)
	return err
}

func (r *ownerRepository) SetLanguage(ctx context.Context, ownerID int64, language string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE owners SET language=$1, updated_at=NOW() WHERE id=$2`,
		language, ownerID,
	)
	return err
}

func (r *ownerRepository) List(ctx context.Context, limit, offset int) ([]domain.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners ORDER BY full_name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Owner
	for rows.Next() {
		var (
			owner     domain.Owner
			block     *string
			entrance  *string
			apartment *string
		)
		if err := rows.Scan(
			&owner.ID,
			&owner.Phone,
			&owner.FullName,
			&owner.ResidentialComplex,
			&block,
			&entrance,
			&apartment,
			&owner.TelegramID,
			&owner.IsActive,
			&owner.Language,
			&owner.CreatedAt,
			&owner.UpdatedAt,
		); err != nil {
			return nil, err
		}
		owner.Block = deref(block)
		owner.Entrance = deref(entrance)
		owner.Apartment = deref(apartment)
		result = append(result, owner)
	}
	return result, rows.Err()
}

func (r *ownerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM owners`).Scan(&count)
	return count, err
}

func (r *ownerRepository) Deactivate(ctx context.Context, ownerID int64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE owners SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, ownerID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
