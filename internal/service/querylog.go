package service

import (
	"context"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/pagination"
	"github.com/deskmind/deskmind/internal/telemetry"
)

// QueryLogRepositoryInterface defines the repository interface for query log persistence
type QueryLogRepositoryInterface interface {
	Create(ctx context.Context, q *domain.QueryLog) error
	GetByID(ctx context.Context, id string) (*domain.QueryLog, error)
	ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.QueryLog, *pagination.Cursor, error)
	Analytics(ctx context.Context) (*QueryAnalytics, error)
}

// FeedbackRepositoryInterface defines the repository interface for the review queue
type FeedbackRepositoryInterface interface {
	ListPendingReview(ctx context.Context) ([]*domain.Feedback, error)
}

// ConfidenceBreakdown counts logged queries per confidence level
type ConfidenceBreakdown struct {
	High   int64
	Medium int64
	Low    int64
}

// FeedbackBreakdown counts logged queries per feedback status
type FeedbackBreakdown struct {
	Pending       int64
	PendingReview int64
	Reviewed      int64
}

// QueryAnalytics aggregates the query log for reporting
type QueryAnalytics struct {
	TotalQueries         int64
	ByConfidence         ConfidenceBreakdown
	ByFeedbackStatus     FeedbackBreakdown
	DegradedCount        int64
	AverageTopSimilarity float64
}

// LogQueryInput represents one pipeline invocation to record
type LogQueryInput struct {
	Question           string
	Answer             string
	RetrievedIDs       []string
	Confidence         domain.ConfidenceLevel
	TopDistance        float64
	MeanDistance       float64
	LatencyMs          int64
	SessionID          string
	GenerationDegraded bool
}

// QueryLogService owns the append-only query log and the feedback loop
// on top of it. Feedback writes and the matching log status transition
// happen in one transaction.
type QueryLogService struct {
	logs     QueryLogRepositoryInterface
	feedback FeedbackRepositoryInterface
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewQueryLogService creates a new QueryLogService instance
func NewQueryLogService(logs QueryLogRepositoryInterface, feedback FeedbackRepositoryInterface, txRunner TxRunner) *QueryLogService {
	return NewQueryLogServiceWithUUIDGen(logs, feedback, txRunner, &DefaultUUIDGenerator{})
}

// NewQueryLogServiceWithUUIDGen creates a new QueryLogService with custom UUID generator (for testing)
func NewQueryLogServiceWithUUIDGen(logs QueryLogRepositoryInterface, feedback FeedbackRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *QueryLogService {
	return &QueryLogService{
		logs:     logs,
		feedback: feedback,
		txRunner: txRunner,
		uuidGen:  uuidGen,
	}
}

// LogQuery appends one invocation record and returns it.
func (s *QueryLogService) LogQuery(ctx context.Context, input LogQueryInput) (*domain.QueryLog, error) {
	entry := &domain.QueryLog{
		ID:                 s.uuidGen.NewString(),
		Question:           input.Question,
		Answer:             input.Answer,
		RetrievedIDs:       input.RetrievedIDs,
		Confidence:         input.Confidence,
		TopDistance:        input.TopDistance,
		MeanDistance:       input.MeanDistance,
		LatencyMs:          input.LatencyMs,
		SessionID:          input.SessionID,
		GenerationDegraded: input.GenerationDegraded,
		FeedbackStatus:     domain.FeedbackStatusPending,
		CreatedAt:          time.Now().UTC(),
	}
	if entry.RetrievedIDs == nil {
		entry.RetrievedIDs = []string{}
	}

	if err := domain.ValidateQueryLog(entry); err != nil {
		return nil, &domain.DomainError{Code: domain.ErrCodeValidation, Message: err.Error(), Err: err}
	}

	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, domain.NewStoreError("failed to write query log", err)
	}
	return entry, nil
}

// GetLog retrieves one log entry by id.
func (s *QueryLogService) GetLog(ctx context.Context, id string) (*domain.QueryLog, error) {
	return s.logs.GetByID(ctx, id)
}

// RecordFeedback attaches user feedback to a logged answer. Negative
// categories land in the review queue and move the log entry to
// pending_review; a correct verdict closes the loop immediately.
func (s *QueryLogService) RecordFeedback(ctx context.Context, logID string, category domain.FeedbackCategory, comment string) (*domain.Feedback, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryLogService.RecordFeedback", telemetry.SpanAttributes{
		LogID:     logID,
		Operation: "feedback",
	})
	defer span.End()

	if !domain.IsValidFeedbackCategory(category) {
		return nil, domain.ErrInvalidFeedbackCategory
	}

	if _, err := s.logs.GetByID(ctx, logID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.Feedback{
		ID:        s.uuidGen.NewString(),
		LogID:     logID,
		Category:  category,
		Comment:   comment,
		CreatedAt: now,
	}

	logStatus := domain.FeedbackStatusReviewed
	if record.IsNegative() {
		record.Status = domain.ReviewStatusPending
		record.SuggestedActions = suggestActions(category, comment)
		logStatus = domain.FeedbackStatusPendingReview
	} else {
		record.Status = domain.ReviewStatusReviewed
		record.ReviewedAt = &now
		record.SuggestedActions = []string{}
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Feedback().Create(ctx, record); err != nil {
			return err
		}
		return repos.QueryLogs().UpdateFeedbackStatus(ctx, logID, logStatus)
	})
	if err != nil {
		if _, ok := err.(*domain.DomainError); ok {
			return nil, err
		}
		return nil, domain.NewStoreError("failed to record feedback", err)
	}
	return record, nil
}

// ListPendingReview returns queued feedback oldest-first.
func (s *QueryLogService) ListPendingReview(ctx context.Context) ([]*domain.Feedback, error) {
	items, err := s.feedback.ListPendingReview(ctx)
	if err != nil {
		return nil, domain.NewStoreError("failed to list review queue", err)
	}
	return items, nil
}

// ReviewFeedback closes a queued record and moves the referenced log
// entry to reviewed, atomically.
func (s *QueryLogService) ReviewFeedback(ctx context.Context, feedbackID, reviewerNotes string) (*domain.Feedback, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryLogService.ReviewFeedback", telemetry.SpanAttributes{
		Operation: "review",
	})
	defer span.End()

	var reviewed *domain.Feedback
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		record, err := repos.Feedback().GetByID(ctx, feedbackID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := repos.Feedback().MarkReviewed(ctx, feedbackID, reviewerNotes, now); err != nil {
			return err
		}
		if err := repos.QueryLogs().UpdateFeedbackStatus(ctx, record.LogID, domain.FeedbackStatusReviewed); err != nil {
			return err
		}
		record.Status = domain.ReviewStatusReviewed
		record.ReviewerNotes = reviewerNotes
		record.ReviewedAt = &now
		reviewed = record
		return nil
	})
	if err != nil {
		if _, ok := err.(*domain.DomainError); ok {
			return nil, err
		}
		return nil, domain.NewStoreError("failed to review feedback", err)
	}
	return reviewed, nil
}

// ListRecent pages the log newest-first. The cursor is opaque to callers.
func (s *QueryLogService) ListRecent(ctx context.Context, cursor string, limit int) ([]*domain.QueryLog, string, error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, "", &domain.DomainError{Code: domain.ErrCodeValidation, Message: "invalid cursor", Err: err}
	}

	items, next, err := s.logs.ListRecent(ctx, decoded, limit)
	if err != nil {
		return nil, "", domain.NewStoreError("failed to list query logs", err)
	}

	var nextCursor string
	if next != nil {
		nextCursor = pagination.EncodeCursor(next.LastID, next.Timestamp)
	}
	return items, nextCursor, nil
}

// Analytics aggregates the full query log.
func (s *QueryLogService) Analytics(ctx context.Context) (*QueryAnalytics, error) {
	analytics, err := s.logs.Analytics(ctx)
	if err != nil {
		return nil, domain.NewStoreError("failed to aggregate query log", err)
	}
	return analytics, nil
}

// suggestActions maps negative feedback to concrete curation steps for
// the reviewer.
func suggestActions(category domain.FeedbackCategory, comment string) []string {
	var actions []string
	switch category {
	case domain.FeedbackIncorrect:
		actions = append(actions,
			"Verify the referenced knowledge entries against current policy",
			"Correct or remove entries that gave the wrong answer",
		)
	case domain.FeedbackPartiallyCorrect:
		actions = append(actions, "Expand the matched entries with the missing detail")
	case domain.FeedbackUnclear:
		actions = append(actions, "Rewrite the matched entries for clarity")
	}
	if comment != "" {
		actions = append(actions, "Review the user's comment for specifics")
	}
	return actions
}
