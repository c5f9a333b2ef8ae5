package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and writes the singleton settings row.
type Repository interface {
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context) (Settings, error) {
	const query = `
		SELECT system_prompt, marketing_prompt, gemini_api_key,
		       whatsapp_access_token, whatsapp_phone_number_id,
		       webhook_verify_token, app_secret, updated_at
		FROM settings WHERE id = 1`

	var s Settings
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.SystemPrompt, &s.MarketingPrompt, &s.GeminiAPIKey,
		&s.WhatsAppAccessToken, &s.WhatsAppPhoneNumberID,
		&s.WebhookVerifyToken, &s.AppSecret, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	return s, nil
}

func (r *pgRepository) Save(ctx context.Context, s Settings) (Settings, error) {
	const query = `
		INSERT INTO settings (id, system_prompt, marketing_prompt, gemini_api_key,
		                      whatsapp_access_token, whatsapp_phone_number_id,
		                      webhook_verify_token, app_secret, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
		       system_prompt = EXCLUDED.system_prompt,
		       marketing_prompt = EXCLUDED.marketing_prompt,
		       gemini_api_key = EXCLUDED.gemini_api_key,
		       whatsapp_access_token = EXCLUDED.whatsapp_access_token,
		       whatsapp_phone_number_id = EXCLUDED.whatsapp_phone_number_id,
		       webhook_verify_token = EXCLUDED.webhook_verify_token,
		       app_secret = EXCLUDED.app_secret,
		       updated_at = now()
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		s.SystemPrompt, s.MarketingPrompt, s.GeminiAPIKey,
		s.WhatsAppAccessToken, s.WhatsAppPhoneNumberID,
		s.WebhookVerifyToken, s.AppSecret,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}
