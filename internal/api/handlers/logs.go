package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/deskmind/deskmind/internal/api"
	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/service"
)

type QueryLogService interface {
	ListRecent(ctx context.Context, cursor string, limit int) ([]*domain.QueryLog, string, error)
	Analytics(ctx context.Context) (*service.QueryAnalytics, error)
}

type LogsHandler struct {
	svc QueryLogService
}

func NewLogsHandler(svc QueryLogService) *LogsHandler {
	return &LogsHandler{svc: svc}
}

type QueryLogResponse struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Answer             string   `json:"answer"`
	RetrievedIDs       []string `json:"retrieved_ids"`
	Confidence         string   `json:"confidence"`
	TopDistance        float64  `json:"top_distance"`
	MeanDistance       float64  `json:"mean_distance"`
	LatencyMs          int64    `json:"latency_ms"`
	SessionID          string   `json:"session_id,omitempty"`
	GenerationDegraded bool     `json:"generation_degraded"`
	FeedbackStatus     string   `json:"feedback_status"`
	CreatedAt          string   `json:"created_at"`
}

type AnalyticsResponse struct {
	TotalQueries         int64            `json:"total_queries"`
	ByConfidence         map[string]int64 `json:"by_confidence"`
	ByFeedbackStatus     map[string]int64 `json:"by_feedback_status"`
	DegradedCount        int64            `json:"degraded_count"`
	AverageTopSimilarity float64          `json:"average_top_similarity"`
}

func queryLogToResponse(q *domain.QueryLog) QueryLogResponse {
	ids := q.RetrievedIDs
	if ids == nil {
		ids = []string{}
	}
	return QueryLogResponse{
		ID:                 q.ID,
		Question:           q.Question,
		Answer:             q.Answer,
		RetrievedIDs:       ids,
		Confidence:         string(q.Confidence),
		TopDistance:        q.TopDistance,
		MeanDistance:       q.MeanDistance,
		LatencyMs:          q.LatencyMs,
		SessionID:          q.SessionID,
		GenerationDegraded: q.GenerationDegraded,
		FeedbackStatus:     string(q.FeedbackStatus),
		CreatedAt:          q.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *LogsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	logs, nextCursor, err := h.svc.ListRecent(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]QueryLogResponse, 0, len(logs))
	for _, q := range logs {
		items = append(items, queryLogToResponse(q))
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"items":       items,
		"next_cursor": nextCursor,
	})
}

func (h *LogsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.svc.Analytics(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnalyticsResponse{
		TotalQueries: analytics.TotalQueries,
		ByConfidence: map[string]int64{
			"high":   analytics.ByConfidence.High,
			"medium": analytics.ByConfidence.Medium,
			"low":    analytics.ByConfidence.Low,
		},
		ByFeedbackStatus: map[string]int64{
			"pending":        analytics.ByFeedbackStatus.Pending,
			"pending_review": analytics.ByFeedbackStatus.PendingReview,
			"reviewed":       analytics.ByFeedbackStatus.Reviewed,
		},
		DegradedCount:        analytics.DegradedCount,
		AverageTopSimilarity: analytics.AverageTopSimilarity,
	})
}
