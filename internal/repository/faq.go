package repository

import (
	"context"
	"errors"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// FAQRepository persists FAQ entries and their embeddings.
type FAQRepository struct {
	db dbtx
}

func NewFAQRepository(pool *pgxpool.Pool) *FAQRepository {
	return &FAQRepository{db: pool}
}

func NewFAQRepositoryWithTx(tx pgx.Tx) *FAQRepository {
	return &FAQRepository{db: tx}
}

func (r *FAQRepository) Create(ctx context.Context, f *domain.FAQ, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO faqs (id, title, body, tags, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.Title, f.Body, f.Tags, pgvector.NewVector(embedding), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrFAQAlreadyExists
		}
		return err
	}
	return nil
}

func (r *FAQRepository) GetByID(ctx context.Context, id string) (*domain.FAQ, error) {
	var f domain.FAQ
	err := r.db.QueryRow(ctx,
		`SELECT id, title, body, tags, created_at, updated_at
		 FROM faqs WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Title, &f.Body, &f.Tags, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFAQNotFound
		}
		return nil, err
	}
	f.BodyLength = len(f.Body)
	return &f, nil
}

// Delete removes an entry and reports whether it existed.
func (r *FAQRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SearchByEmbedding returns the k nearest entries by cosine distance,
// closest first. Entries without an embedding never match.
func (r *FAQRepository) SearchByEmbedding(ctx context.Context, embedding []float32, k int) ([]*service.SearchHit, error) {
	if k <= 0 {
		k = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, title, tags, left(body, 240), embedding <=> $1 AS distance
		 FROM faqs
		 WHERE embedding IS NOT NULL
		 ORDER BY distance ASC
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]*service.SearchHit, 0, k)
	for rows.Next() {
		var h service.SearchHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Tags, &h.Snippet, &h.Distance); err != nil {
			return nil, err
		}
		h.Similarity = 1 - h.Distance
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}

func (r *FAQRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM faqs`).Scan(&n)
	return n, err
}

// CountMissingEmbeddings reports entries whose vector is absent; the
// maintenance worker treats a non-zero result as an inconsistency signal.
func (r *FAQRepository) CountMissingEmbeddings(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM faqs WHERE embedding IS NULL`).Scan(&n)
	return n, err
}
