package repository

import (
	"context"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository stores the append-only knowledge-base mutation trail.
type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func NewAuditRepositoryWithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Create(ctx context.Context, a *domain.AuditEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_log (id, operation, faq_id, actor, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, string(a.Operation), a.FAQID, a.Actor, a.Summary, a.CreatedAt,
	)
	return err
}

// ListRecent pages newest-first using a (created_at, id) keyset cursor.
func (r *AuditRepository) ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.AuditEntry, *pagination.Cursor, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, operation, faq_id, actor, summary, created_at
			 FROM audit_log
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, operation, faq_id, actor, summary, created_at
			 FROM audit_log
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []*domain.AuditEntry
	for rows.Next() {
		var a domain.AuditEntry
		var op string
		if err := rows.Scan(&a.ID, &op, &a.FAQID, &a.Actor, &a.Summary, &a.CreatedAt); err != nil {
			return nil, nil, err
		}
		a.Operation = domain.AuditOperation(op)
		items = append(items, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		next = &pagination.Cursor{Timestamp: last.CreatedAt, LastID: last.ID}
	}
	return items, next, nil
}
