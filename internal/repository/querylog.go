package repository

import (
	"context"
	"errors"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/pagination"
	"github.com/deskmind/deskmind/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogRepository stores pipeline invocation records. Rows are
// append-only apart from the feedback status transition.
type QueryLogRepository struct {
	db dbtx
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{db: pool}
}

func NewQueryLogRepositoryWithTx(tx pgx.Tx) *QueryLogRepository {
	return &QueryLogRepository{db: tx}
}

func (r *QueryLogRepository) Create(ctx context.Context, q *domain.QueryLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO query_logs (id, question, answer, retrieved_ids, confidence, top_distance, mean_distance,
		                         latency_ms, session_id, generation_degraded, feedback_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		q.ID, q.Question, q.Answer, q.RetrievedIDs, string(q.Confidence), q.TopDistance, q.MeanDistance,
		q.LatencyMs, nullable(q.SessionID), q.GenerationDegraded, string(q.FeedbackStatus), q.CreatedAt,
	)
	return err
}

func (r *QueryLogRepository) GetByID(ctx context.Context, id string) (*domain.QueryLog, error) {
	var q domain.QueryLog
	var confidence, status string
	var sessionID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, question, answer, retrieved_ids, confidence, top_distance, mean_distance,
		        latency_ms, session_id, generation_degraded, feedback_status, created_at
		 FROM query_logs WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Question, &q.Answer, &q.RetrievedIDs, &confidence, &q.TopDistance, &q.MeanDistance,
		&q.LatencyMs, &sessionID, &q.GenerationDegraded, &status, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueryLogNotFound
		}
		return nil, err
	}
	q.Confidence = domain.ConfidenceLevel(confidence)
	q.FeedbackStatus = domain.FeedbackStatus(status)
	if sessionID != nil {
		q.SessionID = *sessionID
	}
	return &q, nil
}

func (r *QueryLogRepository) UpdateFeedbackStatus(ctx context.Context, id string, status domain.FeedbackStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE query_logs SET feedback_status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQueryLogNotFound
	}
	return nil
}

// ListRecent pages newest-first using a (created_at, id) keyset cursor.
func (r *QueryLogRepository) ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.QueryLog, *pagination.Cursor, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, question, answer, retrieved_ids, confidence, top_distance, mean_distance,
			        latency_ms, session_id, generation_degraded, feedback_status, created_at
			 FROM query_logs
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, question, answer, retrieved_ids, confidence, top_distance, mean_distance,
			        latency_ms, session_id, generation_degraded, feedback_status, created_at
			 FROM query_logs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	items, err := scanQueryLogRows(rows)
	if err != nil {
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

// Analytics aggregates the whole log in one pass.
func (r *QueryLogRepository) Analytics(ctx context.Context) (*service.QueryAnalytics, error) {
	var a service.QueryAnalytics
	var avgSimilarity *float64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE confidence = 'high'),
		        COUNT(*) FILTER (WHERE confidence = 'medium'),
		        COUNT(*) FILTER (WHERE confidence = 'low'),
		        COUNT(*) FILTER (WHERE feedback_status = 'pending'),
		        COUNT(*) FILTER (WHERE feedback_status = 'pending_review'),
		        COUNT(*) FILTER (WHERE feedback_status = 'reviewed'),
		        COUNT(*) FILTER (WHERE generation_degraded),
		        AVG(1 - top_distance) FILTER (WHERE array_length(retrieved_ids, 1) > 0)
		 FROM query_logs`,
	).Scan(
		&a.TotalQueries,
		&a.ByConfidence.High, &a.ByConfidence.Medium, &a.ByConfidence.Low,
		&a.ByFeedbackStatus.Pending, &a.ByFeedbackStatus.PendingReview, &a.ByFeedbackStatus.Reviewed,
		&a.DegradedCount,
		&avgSimilarity,
	)
	if err != nil {
		return nil, err
	}
	if avgSimilarity != nil {
		a.AverageTopSimilarity = *avgSimilarity
	}
	return &a, nil
}

func scanQueryLogRows(rows pgx.Rows) ([]*domain.QueryLog, error) {
	var items []*domain.QueryLog
	for rows.Next() {
		var q domain.QueryLog
		var confidence, status string
		var sessionID *string
		if err := rows.Scan(&q.ID, &q.Question, &q.Answer, &q.RetrievedIDs, &confidence, &q.TopDistance,
			&q.MeanDistance, &q.LatencyMs, &sessionID, &q.GenerationDegraded, &status, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Confidence = domain.ConfidenceLevel(confidence)
		q.FeedbackStatus = domain.FeedbackStatus(status)
		if sessionID != nil {
			q.SessionID = *sessionID
		}
		items = append(items, &q)
	}
	return items, rows.Err()
}
