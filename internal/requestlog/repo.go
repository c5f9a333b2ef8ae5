package requestlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists log entries and serves the aggregate views.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	Contacts(ctx context.Context) ([]Contact, error)
	Stats(ctx context.Context) (Stats, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO request_logs (id, channel, query, response, success, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`
	if _, err := r.pool.Exec(ctx, query, e.ID, e.Channel, e.Query, e.Response, e.Success, e.UserID); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

func (r *pgRepository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT id, channel, query, response, success, user_id, created_at
		FROM request_logs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Channel, &e.Query, &e.Response, &e.Success, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgRepository) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	const query = `
		SELECT id, channel, query, response, success, user_id, created_at
		FROM request_logs WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user request logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Channel, &e.Query, &e.Response, &e.Success, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgRepository) Contacts(ctx context.Context) ([]Contact, error) {
	const query = `
		SELECT user_id, max(channel), count(*), max(created_at)
		FROM request_logs
		WHERE user_id <> ''
		GROUP BY user_id
		ORDER BY max(created_at) DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.UserID, &c.Channel, &c.MessageCount, &c.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *pgRepository) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByChannel: map[string]int64{}}

	const totals = `SELECT count(*), count(*) FILTER (WHERE success) FROM request_logs`
	if err := r.pool.QueryRow(ctx, totals).Scan(&stats.Total, &stats.Succeeded); err != nil {
		return Stats{}, fmt.Errorf("query totals: %w", err)
	}

	const perChannel = `SELECT channel, count(*) FROM request_logs GROUP BY channel`
	rows, err := r.pool.Query(ctx, perChannel)
	if err != nil {
		return Stats{}, fmt.Errorf("query channel counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var channel string
		var count int64
		if err := rows.Scan(&channel, &count); err != nil {
			return Stats{}, fmt.Errorf("scan channel count: %w", err)
		}
		stats.ByChannel[channel] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	return stats, nil
}
