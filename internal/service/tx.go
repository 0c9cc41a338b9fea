package service

import (
	"context"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
)

// QueryLogTxRepository is the query-log surface available inside a transaction.
type QueryLogTxRepository interface {
	UpdateFeedbackStatus(ctx context.Context, id string, status domain.FeedbackStatus) error
}

// FeedbackTxRepository is the feedback surface available inside a transaction.
type FeedbackTxRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
	GetByID(ctx context.Context, id string) (*domain.Feedback, error)
	MarkReviewed(ctx context.Context, id, reviewerNotes string, reviewedAt time.Time) error
}

// AuditTxRepository is the audit surface available inside a transaction.
type AuditTxRepository interface {
	Create(ctx context.Context, a *domain.AuditEntry) error
}

// StateTxRepository is the change-counter surface available inside a transaction.
type StateTxRepository interface {
	IncrementChangeCounter(ctx context.Context) (int64, error)
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	QueryLogs() QueryLogTxRepository
	Feedback() FeedbackTxRepository
	Audit() AuditTxRepository
	State() StateTxRepository
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
