package domain

import (
	"fmt"
	"time"
)

// FAQ represents one curated knowledge entry eligible for retrieval.
// The embedding stored beside it is always derived from the current
// title and body; updates replace both together.
type FAQ struct {
	ID         string
	Title      string
	Body       string
	Tags       []string
	BodyLength int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewFAQ creates a new FAQ instance
func NewFAQ(id, title, body string, tags []string, createdAt time.Time) *FAQ {
	return &FAQ{
		ID:         id,
		Title:      title,
		Body:       body,
		Tags:       tags,
		BodyLength: len(body),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// EmbeddingText returns the text the entry's embedding is derived from.
func (f *FAQ) EmbeddingText() string {
	return f.Title + "\n" + f.Body
}

// ValidateFAQ validates an FAQ instance
func ValidateFAQ(f *FAQ) error {
	if f == nil {
		return fmt.Errorf("faq cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("faq ID is required")
	}

	if f.Title == "" {
		return fmt.Errorf("faq Title is required")
	}

	if f.Body == "" {
		return fmt.Errorf("faq Body is required")
	}

	return nil
}
