package repository

import (
	"context"
	"errors"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists conversation sessions and their turns.
type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func (r *SessionRepository) CreateSession(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, total_messages, created_at, updated_at)
		 VALUES ($1, 0, $2, $2)
		 ON CONFLICT (id) DO NOTHING`,
		id, now,
	)
	return err
}

// AppendTurn records a turn, bumps the session's lifetime message count and
// drops turns beyond the retention window. Callers serialize appends per
// session, so the statements need no transaction.
func (r *SessionRepository) AppendTurn(ctx context.Context, sessionID string, turn *domain.Turn, retain int) error {
	if err := r.CreateSession(ctx, sessionID, turn.CreatedAt); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO turns (session_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, string(turn.Role), turn.Content, turn.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`UPDATE sessions SET total_messages = total_messages + 1, updated_at = $2 WHERE id = $1`,
		sessionID, turn.CreatedAt,
	)
	if err != nil {
		return err
	}

	if retain > 0 {
		_, err = r.db.Exec(ctx,
			`DELETE FROM turns
			 WHERE session_id = $1
			   AND seq NOT IN (
				SELECT seq FROM turns WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
			   )`,
			sessionID, retain,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListTurns returns the retained turns in append order.
func (r *SessionRepository) ListTurns(ctx context.Context, sessionID string) ([]*domain.Turn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT role, content, created_at
		 FROM turns WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]*domain.Turn, 0)
	for rows.Next() {
		var t domain.Turn
		var role string
		if err := rows.Scan(&role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Role = domain.TurnRole(role)
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

func (r *SessionRepository) Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	var stats domain.SessionStats
	var updatedAt time.Time
	err := r.db.QueryRow(ctx,
		`SELECT s.total_messages, s.updated_at,
		        (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		 FROM sessions s WHERE s.id = $1`,
		sessionID,
	).Scan(&stats.TotalMessages, &updatedAt, &stats.TurnCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.SessionStats{Exists: false}, nil
		}
		return nil, err
	}
	stats.Exists = true
	stats.LastUpdated = &updatedAt
	return &stats, nil
}

// DeleteSession removes a session and, via cascade, its turns.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
