package repository

import (
	"context"
	"errors"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepository stores feedback records and the admin review queue.
type FeedbackRepository struct {
	db dbtx
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: pool}
}

func NewFeedbackRepositoryWithTx(tx pgx.Tx) *FeedbackRepository {
	return &FeedbackRepository{db: tx}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO feedback (id, log_id, category, comment, status, suggested_actions, reviewer_notes, created_at, reviewed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.LogID, string(f.Category), nullable(f.Comment), string(f.Status),
		f.SuggestedActions, nullable(f.ReviewerNotes), f.CreatedAt, f.ReviewedAt,
	)
	return err
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*domain.Feedback, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, log_id, category, comment, status, suggested_actions, reviewer_notes, created_at, reviewed_at
		 FROM feedback WHERE id = $1`,
		id,
	)
	f, err := scanFeedbackRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListPendingReview returns queued records oldest-first so reviewers
// work through the backlog in arrival order.
func (r *FeedbackRepository) ListPendingReview(ctx context.Context) ([]*domain.Feedback, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, log_id, category, comment, status, suggested_actions, reviewer_notes, created_at, reviewed_at
		 FROM feedback
		 WHERE status = 'pending_review'
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.Feedback, 0)
	for rows.Next() {
		f, err := scanFeedbackRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// MarkReviewed transitions a queued record to reviewed.
func (r *FeedbackRepository) MarkReviewed(ctx context.Context, id, reviewerNotes string, reviewedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE feedback
		 SET status = 'reviewed', reviewer_notes = $2, reviewed_at = $3
		 WHERE id = $1 AND status = 'pending_review'`,
		id, nullable(reviewerNotes), reviewedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedbackRow(row rowScanner) (*domain.Feedback, error) {
	var f domain.Feedback
	var category, status string
	var comment, reviewerNotes *string
	if err := row.Scan(&f.ID, &f.LogID, &category, &comment, &status,
		&f.SuggestedActions, &reviewerNotes, &f.CreatedAt, &f.ReviewedAt); err != nil {
		return nil, err
	}
	f.Category = domain.FeedbackCategory(category)
	f.Status = domain.ReviewStatus(status)
	if comment != nil {
		f.Comment = *comment
	}
	if reviewerNotes != nil {
		f.ReviewerNotes = *reviewerNotes
	}
	return &f, nil
}
