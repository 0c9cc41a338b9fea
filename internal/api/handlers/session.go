package handlers

import (
	"context"
	"net/http"

	"github.com/deskmind/deskmind/internal/api"
	"github.com/deskmind/deskmind/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ConversationService interface {
	StartSession(ctx context.Context) (string, error)
	History(ctx context.Context, sessionID string) ([]*domain.Turn, error)
	Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error)
	Clear(ctx context.Context, sessionID string) error
}

type SessionHandler struct {
	svc ConversationService
}

func NewSessionHandler(svc ConversationService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type TurnResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type SessionStatsResponse struct {
	Exists        bool   `json:"exists"`
	TotalMessages int    `json:"total_messages"`
	TurnCount     int    `json:"turn_count"`
	LastUpdated   string `json:"last_updated,omitempty"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.StartSession(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	turns, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnResponse{
			Role:      string(t.Role),
			Content:   t.Content,
			Timestamp: t.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	api.Success(w, http.StatusOK, map[string]interface{}{"turns": out})
}

func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	stats, err := h.svc.Stats(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := SessionStatsResponse{
		Exists:        stats.Exists,
		TotalMessages: stats.TotalMessages,
		TurnCount:     stats.TurnCount,
	}
	if stats.LastUpdated != nil {
		resp.LastUpdated = stats.LastUpdated.Format("2006-01-02T15:04:05Z")
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := h.svc.Clear(r.Context(), sessionID); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]bool{"cleared": true})
}
