package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists document metadata rows.
type Repository interface {
	Insert(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	GetByHash(ctx context.Context, hash string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	ListByStatus(ctx context.Context, status Status) ([]Document, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	IncrementUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const documentColumns = `id, name, content_hash, provider_name, provider_uri,
	mime_type, size_bytes, status, usage_count, created_at`

func (r *pgRepository) Insert(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO documents (id, name, content_hash, provider_name, provider_uri,
		                       mime_type, size_bytes, status, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, now())
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		doc.ID, doc.Name, doc.ContentHash, doc.ProviderName, doc.ProviderURI,
		doc.MimeType, doc.SizeBytes, string(doc.Status),
	).Scan(&doc.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

func (r *pgRepository) Get(ctx context.Context, id string) (Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *pgRepository) GetByHash(ctx context.Context, hash string) (Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE content_hash = $1`, documentColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, hash))
}

func (r *pgRepository) List(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents ORDER BY created_at DESC`, documentColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *pgRepository) ListByStatus(ctx context.Context, status Status) ([]Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE status = $1 ORDER BY created_at DESC`, documentColumns)
	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *pgRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) IncrementUsage(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment document usage: %w", err)
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) scanOne(row pgx.Row) (Document, error) {
	var doc Document
	var status string
	err := row.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ProviderName,
		&doc.ProviderURI, &doc.MimeType, &doc.SizeBytes, &status,
		&doc.UsageCount, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = Status(status)
	return doc, nil
}

func scanAll(rows pgx.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var doc Document
		var status string
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ProviderName,
			&doc.ProviderURI, &doc.MimeType, &doc.SizeBytes, &status,
			&doc.UsageCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Status = Status(status)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
