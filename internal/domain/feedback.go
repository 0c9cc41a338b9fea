package domain

import (
	"fmt"
	"time"
)

// FeedbackCategory classifies user feedback on an answer
type FeedbackCategory string

const (
	FeedbackCorrect          FeedbackCategory = "correct"
	FeedbackIncorrect        FeedbackCategory = "incorrect"
	FeedbackPartiallyCorrect FeedbackCategory = "partially_correct"
	FeedbackUnclear          FeedbackCategory = "unclear"
)

// ReviewStatus tracks a feedback record through the admin review queue
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending_review"
	ReviewStatusReviewed ReviewStatus = "reviewed"
)

// Feedback is a user's judgment on a logged answer. Negative categories
// are queued for admin review; the referenced query log's feedback
// status moves in the same transaction.
type Feedback struct {
	ID               string
	LogID            string
	Category         FeedbackCategory
	Comment          string
	Status           ReviewStatus
	SuggestedActions []string
	ReviewerNotes    string
	CreatedAt        time.Time
	ReviewedAt       *time.Time
}

// IsNegative reports whether the category routes the record into the
// admin review queue.
func (f *Feedback) IsNegative() bool {
	return IsNegativeFeedback(f.Category)
}

// IsNegativeFeedback reports whether a category counts as negative.
func IsNegativeFeedback(c FeedbackCategory) bool {
	switch c {
	case FeedbackIncorrect, FeedbackPartiallyCorrect, FeedbackUnclear:
		return true
	}
	return false
}

// ValidateFeedback validates a Feedback instance
func ValidateFeedback(f *Feedback) error {
	if f == nil {
		return fmt.Errorf("feedback cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("feedback ID is required")
	}

	if f.LogID == "" {
		return fmt.Errorf("feedback LogID is required")
	}

	if !IsValidFeedbackCategory(f.Category) {
		return fmt.Errorf("feedback Category is invalid: %s", f.Category)
	}

	return nil
}

// IsValidFeedbackCategory checks if a FeedbackCategory is valid
func IsValidFeedbackCategory(c FeedbackCategory) bool {
	switch c {
	case FeedbackCorrect, FeedbackIncorrect, FeedbackPartiallyCorrect, FeedbackUnclear:
		return true
	}
	return false
}
