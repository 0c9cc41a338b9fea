package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateRepository holds the single-row knowledge-base change counter.
// The counter only moves forward on mutation; Acknowledge is the one
// place it resets.
type StateRepository struct {
	db dbtx
}

func NewStateRepository(pool *pgxpool.Pool) *StateRepository {
	return &StateRepository{db: pool}
}

func NewStateRepositoryWithTx(tx pgx.Tx) *StateRepository {
	return &StateRepository{db: tx}
}

// IncrementChangeCounter bumps the counter and returns the new value.
func (r *StateRepository) IncrementChangeCounter(ctx context.Context) (int64, error) {
	var counter int64
	err := r.db.QueryRow(ctx,
		`UPDATE kb_state SET change_counter = change_counter + 1 WHERE id RETURNING change_counter`,
	).Scan(&counter)
	return counter, err
}

func (r *StateRepository) GetChangeCounter(ctx context.Context) (int64, *time.Time, error) {
	var counter int64
	var acknowledgedAt *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT change_counter, acknowledged_at FROM kb_state WHERE id`,
	).Scan(&counter, &acknowledgedAt)
	return counter, acknowledgedAt, err
}

// Acknowledge records a completed maintenance pass and zeroes the counter.
func (r *StateRepository) Acknowledge(ctx context.Context, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE kb_state SET change_counter = 0, acknowledged_at = $1 WHERE id`,
		at,
	)
	return err
}
