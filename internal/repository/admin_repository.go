package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qss-platform/resident-service/internal/domain"
)

// AdminRepository encapsulates admin persistence.
type AdminRepository interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Admin, error)
	ListAll(ctx context.Context) ([]domain.Admin, error)
	Create(ctx context.Context, admin *domain.Admin) error
	Delete(ctx context.Context, id int64) error
}

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository instantiates repository.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

const adminColumns = `id, telegram_id, full_name, language, created_at, updated_at`

func (r *adminRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Admin, error) {
	var admin domain.Admin
	err := r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE telegram_id=$1`, telegramID,
	).Scan(
		&admin.ID,
		&admin.TelegramID,
		&admin.FullName,
		&admin.Language,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepository) ListAll(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Admin
	for rows.Next() {
		var admin domain.Admin
		if err := rows.Scan(
			&admin.ID,
			&admin.TelegramID,
			&admin.FullName,
			&admin.Language,
			&admin.CreatedAt,
			&admin.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, admin)
	}
	return result, rows.Err()
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	const query = `
        INSERT INTO admins (telegram_id, full_name, language)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		admin.TelegramID,
		admin.FullName,
		admin.Language,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *adminRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id=$1`, id)
	return err
}
