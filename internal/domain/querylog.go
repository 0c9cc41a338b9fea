package domain

import (
	"fmt"
	"time"
)

// ConfidenceLevel is the categorical judgment of whether retrieved
// context is sufficient to answer directly.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// FeedbackStatus tracks where a query log entry sits in the review loop
type FeedbackStatus string

const (
	FeedbackStatusPending       FeedbackStatus = "pending"
	FeedbackStatusPendingReview FeedbackStatus = "pending_review"
	FeedbackStatusReviewed      FeedbackStatus = "reviewed"
)

// QueryLog records one pipeline invocation. Immutable once written,
// except for the feedback status transition.
type QueryLog struct {
	ID                 string
	Question           string
	Answer             string
	RetrievedIDs       []string
	Confidence         ConfidenceLevel
	TopDistance        float64
	MeanDistance       float64
	LatencyMs          int64
	SessionID          string
	GenerationDegraded bool
	FeedbackStatus     FeedbackStatus
	CreatedAt          time.Time
}

// ValidateQueryLog validates a QueryLog instance
func ValidateQueryLog(q *QueryLog) error {
	if q == nil {
		return fmt.Errorf("query log cannot be nil")
	}

	if q.ID == "" {
		return fmt.Errorf("query log ID is required")
	}

	if q.Question == "" {
		return fmt.Errorf("query log Question is required")
	}

	if !isValidConfidenceLevel(q.Confidence) {
		return fmt.Errorf("query log Confidence is invalid: %s", q.Confidence)
	}

	return nil
}

// isValidConfidenceLevel checks if a ConfidenceLevel is valid
func isValidConfidenceLevel(c ConfidenceLevel) bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}
