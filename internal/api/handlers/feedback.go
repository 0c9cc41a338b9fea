package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/deskmind/deskmind/internal/api"
	"github.com/deskmind/deskmind/internal/domain"
	"github.com/go-chi/chi/v5"
)

type FeedbackService interface {
	RecordFeedback(ctx context.Context, logID string, category domain.FeedbackCategory, comment string) (*domain.Feedback, error)
	ListPendingReview(ctx context.Context) ([]*domain.Feedback, error)
	ReviewFeedback(ctx context.Context, feedbackID, reviewerNotes string) (*domain.Feedback, error)
}

type FeedbackHandler struct {
	svc FeedbackService
}

func NewFeedbackHandler(svc FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type RecordFeedbackRequest struct {
	LogID    string `json:"log_id"`
	Category string `json:"category"`
	Comment  string `json:"comment"`
}

type ReviewFeedbackRequest struct {
	Notes string `json:"notes"`
}

type FeedbackResponse struct {
	ID               string   `json:"id"`
	LogID            string   `json:"log_id"`
	Category         string   `json:"category"`
	Comment          string   `json:"comment,omitempty"`
	Status           string   `json:"status"`
	SuggestedActions []string `json:"suggested_actions"`
	ReviewerNotes    string   `json:"reviewer_notes,omitempty"`
	CreatedAt        string   `json:"created_at"`
	ReviewedAt       string   `json:"reviewed_at,omitempty"`
}

func feedbackToResponse(f *domain.Feedback) FeedbackResponse {
	resp := FeedbackResponse{
		ID:               f.ID,
		LogID:            f.LogID,
		Category:         string(f.Category),
		Comment:          f.Comment,
		Status:           string(f.Status),
		SuggestedActions: f.SuggestedActions,
		ReviewerNotes:    f.ReviewerNotes,
		CreatedAt:        f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if resp.SuggestedActions == nil {
		resp.SuggestedActions = []string{}
	}
	if f.ReviewedAt != nil {
		resp.ReviewedAt = f.ReviewedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func (h *FeedbackHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LogID == "" {
		api.Error(w, http.StatusBadRequest, "log_id is required")
		return
	}
	if req.Category == "" {
		api.Error(w, http.StatusBadRequest, "category is required")
		return
	}

	category := domain.FeedbackCategory(req.Category)
	if !domain.IsValidFeedbackCategory(category) {
		api.Error(w, http.StatusBadRequest, "invalid feedback category")
		return
	}

	record, err := h.svc.RecordFeedback(r.Context(), req.LogID, category, req.Comment)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, feedbackToResponse(record))
}

func (h *FeedbackHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPendingReview(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]FeedbackResponse, 0, len(items))
	for _, f := range items {
		out = append(out, feedbackToResponse(f))
	}
	api.Success(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *FeedbackHandler) Review(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReviewFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.svc.ReviewFeedback(r.Context(), id, req.Notes)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, feedbackToResponse(record))
}
