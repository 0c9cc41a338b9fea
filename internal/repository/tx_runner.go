package repository

import (
	"context"

	"github.com/deskmind/deskmind/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) QueryLogs() service.QueryLogTxRepository {
	return NewQueryLogRepositoryWithTx(r.tx)
}

func (r *txRepos) Feedback() service.FeedbackTxRepository {
	return NewFeedbackRepositoryWithTx(r.tx)
}

func (r *txRepos) Audit() service.AuditTxRepository {
	return NewAuditRepositoryWithTx(r.tx)
}

func (r *txRepos) State() service.StateTxRepository {
	return NewStateRepositoryWithTx(r.tx)
}
