package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qss-platform/resident-service/internal/domain"
)

// BotTextRepository stores localized interface texts.
type BotTextRepository interface {
	// GetValue returns the text for (key, language); empty string and no
	// error when the key is absent.
	GetValue(ctx context.Context, key, language string) (string, bool, error)
	ListAll(ctx context.Context) ([]domain.BotText, error)
	Upsert(ctx context.Context, text *domain.BotText) error
}

type botTextRepository struct {
	pool *pgxpool.Pool
}

// NewBotTextRepository instantiates repository.
func NewBotTextRepository(pool *pgxpool.Pool) BotTextRepository {
	return &botTextRepository{pool: pool}
}

func (r *botTextRepository) GetValue(ctx context.Context, key, language string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM bot_texts WHERE key=$1 AND language=$2`,
		key, language,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *botTextRepository) ListAll(ctx context.Context) ([]domain.BotText, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, key, language, value, description, updated_at
         FROM bot_texts ORDER BY key, language`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BotText
	for rows.Next() {
		var (
			text        domain.BotText
			description *string
		)
		if err := rows.Scan(
			&text.ID,
			&text.Key,
			&text.Language,
			&text.Value,
			&description,
			&text.UpdatedAt,
		); err != nil {
			return nil, err
		}
		text.Description = deref(description)
		result = append(result, text)
	}
	return result, rows.Err()
}

func (r *botTextRepository) Upsert(ctx context.Context, text *domain.BotText) error {
	const query = `
        INSERT INTO bot_texts (key, language, value, description)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (key, language)
        DO UPDATE SET value=EXCLUDED.value,
            description=COALESCE(NULLIF(EXCLUDED.description, ''), bot_texts.description),
            updated_at=NOW()
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		text.Key,
		text.Language,
		text.Value,
		nullString(text.Description),
	).Scan(&text.ID, &text.UpdatedAt)
}
