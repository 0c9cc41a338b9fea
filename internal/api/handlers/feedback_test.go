package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) RecordFeedback(ctx context.Context, logID string, category domain.FeedbackCategory, comment string) (*domain.Feedback, error) {
	args := m.Called(ctx, logID, category, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Feedback), args.Error(1)
}

func (m *MockFeedbackService) ListPendingReview(ctx context.Context) ([]*domain.Feedback, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Feedback), args.Error(1)
}

func (m *MockFeedbackService) ReviewFeedback(ctx context.Context, feedbackID, reviewerNotes string) (*domain.Feedback, error) {
	args := m.Called(ctx, feedbackID, reviewerNotes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Feedback), args.Error(1)
}

func TestFeedbackHandler_Record_Success(t *testing.T) {
	svc := new(MockFeedbackService)
	handler := NewFeedbackHandler(svc)

	svc.On("RecordFeedback", mock.Anything, "log-1", domain.FeedbackIncorrect, "wrong portal link").
		Return(&domain.Feedback{
			ID:               "fb-1",
			LogID:            "log-1",
			Category:         domain.FeedbackIncorrect,
			Comment:          "wrong portal link",
			Status:           domain.ReviewStatusPending,
			SuggestedActions: []string{"Verify the referenced knowledge entries against current policy"},
			CreatedAt:        time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC),
		}, nil)

	body := `{"log_id":"log-1","category":"incorrect","comment":"wrong portal link"}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Record(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "fb-1", data["id"])
	assert.Equal(t, "pending_review", data["status"])
	actions, ok := data["suggested_actions"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, actions)
}

func TestFeedbackHandler_Record_Validation(t *testing.T) {
	svc := new(MockFeedbackService)
	handler := NewFeedbackHandler(svc)

	tests := []struct {
		name string
		body string
	}{
		{"missing log id", `{"category":"correct"}`},
		{"missing category", `{"log_id":"log-1"}`},
		{"unknown category", `{"log_id":"log-1","category":"meh"}`},
		{"invalid json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()

			handler.Record(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	svc.AssertNotCalled(t, "RecordFeedback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFeedbackHandler_Record_UnknownLog(t *testing.T) {
	svc := new(MockFeedbackService)
	handler := NewFeedbackHandler(svc)

	svc.On("RecordFeedback", mock.Anything, "missing", domain.FeedbackCorrect, "").
		Return(nil, domain.ErrQueryLogNotFound)

	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader([]byte(`{"log_id":"missing","category":"correct"}`)))
	w := httptest.NewRecorder()

	handler.Record(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedbackHandler_ListPending(t *testing.T) {
	svc := new(MockFeedbackService)
	handler := NewFeedbackHandler(svc)

	svc.On("ListPendingReview", mock.Anything).Return([]*domain.Feedback{
		{ID: "fb-1", LogID: "log-1", Category: domain.FeedbackUnclear, Status: domain.ReviewStatusPending},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/feedback/pending", nil)
	w := httptest.NewRecorder()

	handler.ListPending(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestFeedbackHandler_Review(t *testing.T) {
	svc := new(MockFeedbackService)
	handler := NewFeedbackHandler(svc)

	reviewedAt := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	svc.On("ReviewFeedback", mock.Anything, "fb-1", "entry rewritten").Return(&domain.Feedback{
		ID:            "fb-1",
		LogID:         "log-1",
		Category:      domain.FeedbackIncorrect,
		Status:        domain.ReviewStatusReviewed,
		ReviewerNotes: "entry rewritten",
		ReviewedAt:    &reviewedAt,
	}, nil)

	req := requestWithURLParam(http.MethodPost, "/feedback/fb-1/review", "id", "fb-1",
		[]byte(`{"notes":"entry rewritten"}`))
	w := httptest.NewRecorder()

	handler.Review(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "reviewed", data["status"])
	assert.Equal(t, "entry rewritten", data["reviewer_notes"])
	assert.NotEmpty(t, data["reviewed_at"])
}

func TestFeedbackHandler_Review_NotFound(t *testing.T) {
	svc := new(MockFeedbackService)
	handler := NewFeedbackHandler(svc)

	svc.On("ReviewFeedback", mock.Anything, "missing", "").Return(nil, domain.ErrFeedbackNotFound)

	req := requestWithURLParam(http.MethodPost, "/feedback/missing/review", "id", "missing", []byte(`{}`))
	w := httptest.NewRecorder()

	handler.Review(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
