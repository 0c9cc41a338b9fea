package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/deskmind/deskmind/internal/api"
	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/service"
	"github.com/go-chi/chi/v5"
)

type AdminService interface {
	AddFAQ(ctx context.Context, input service.AddEntryInput, actor string) *service.MutationResult
	UpdateFAQ(ctx context.Context, id, title, body string, tags []string, actor string) *service.MutationResult
	DeleteFAQ(ctx context.Context, id, actor string) *service.MutationResult
	GetFAQ(ctx context.Context, id string) (*domain.FAQ, error)
	BulkAdd(ctx context.Context, inputs []service.AddEntryInput, actor string) *service.BulkResult
	Status(ctx context.Context) (*service.KBStatus, error)
	ListAudit(ctx context.Context, cursor string, limit int) ([]*domain.AuditEntry, string, error)
	AcknowledgeReindex(ctx context.Context) error
}

type KBHandler struct {
	svc AdminService
}

func NewKBHandler(svc AdminService) *KBHandler {
	return &KBHandler{svc: svc}
}

type FAQRequest struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type BulkAddRequest struct {
	Entries []FAQRequest `json:"entries"`
}

type MutationResponse struct {
	Success            bool   `json:"success"`
	ID                 string `json:"id,omitempty"`
	ReindexRecommended bool   `json:"reindex_recommended"`
	Error              string `json:"error,omitempty"`
}

type BulkAddResponse struct {
	Added   int                `json:"added"`
	Failed  int                `json:"failed"`
	Results []MutationResponse `json:"results"`
}

type KBStatusResponse struct {
	EntryCount         int64  `json:"entry_count"`
	Status             string `json:"status"`
	ChangeCounter      int64  `json:"change_counter"`
	ReindexThreshold   int64  `json:"reindex_threshold"`
	ReindexRecommended bool   `json:"reindex_recommended"`
	AcknowledgedAt     string `json:"acknowledged_at,omitempty"`
}

type FAQResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	BodyLength int      `json:"body_length"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

type AuditEntryResponse struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	FAQID     string `json:"faq_id"`
	Actor     string `json:"actor"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

func mutationToResponse(r *service.MutationResult) MutationResponse {
	return MutationResponse{
		Success:            r.Success,
		ID:                 r.ID,
		ReindexRecommended: r.ReindexRecommended,
		Error:              r.Error,
	}
}

// actorFrom identifies the operator for the audit trail. There is no
// auth layer; the header is advisory.
func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "system"
}

func (h *KBHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req FAQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Body == "" {
		api.Error(w, http.StatusBadRequest, "body is required")
		return
	}

	result := h.svc.AddFAQ(r.Context(), service.AddEntryInput{
		ID:    req.ID,
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	}, actorFrom(r))

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusOK
	}
	api.Success(w, status, mutationToResponse(result))
}

func (h *KBHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req FAQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Body == "" {
		api.Error(w, http.StatusBadRequest, "body is required")
		return
	}

	result := h.svc.UpdateFAQ(r.Context(), id, req.Title, req.Body, req.Tags, actorFrom(r))
	api.Success(w, http.StatusOK, mutationToResponse(result))
}

func (h *KBHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.svc.GetFAQ(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, FAQResponse{
		ID:         entry.ID,
		Title:      entry.Title,
		Body:       entry.Body,
		Tags:       entry.Tags,
		BodyLength: entry.BodyLength,
		CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  entry.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *KBHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result := h.svc.DeleteFAQ(r.Context(), id, actorFrom(r))
	api.Success(w, http.StatusOK, mutationToResponse(result))
}

func (h *KBHandler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	var req BulkAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Entries) == 0 {
		api.Error(w, http.StatusBadRequest, "entries are required")
		return
	}

	inputs := make([]service.AddEntryInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		inputs = append(inputs, service.AddEntryInput{ID: e.ID, Title: e.Title, Body: e.Body, Tags: e.Tags})
	}

	result := h.svc.BulkAdd(r.Context(), inputs, actorFrom(r))

	resp := BulkAddResponse{Added: result.Added, Failed: result.Failed}
	for _, mr := range result.Results {
		resp.Results = append(resp.Results, mutationToResponse(mr))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *KBHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := KBStatusResponse{
		EntryCount:         status.EntryCount,
		Status:             status.Status,
		ChangeCounter:      status.ChangeCounter,
		ReindexThreshold:   status.ReindexThreshold,
		ReindexRecommended: status.ReindexRecommended,
	}
	if status.AcknowledgedAt != nil {
		resp.AcknowledgedAt = status.AcknowledgedAt.Format("2006-01-02T15:04:05Z")
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *KBHandler) Audit(w http.ResponseWriter, r *http.Request) {
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

	entries, nextCursor, err := h.svc.ListAudit(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, AuditEntryResponse{
			ID:        e.ID,
			Operation: string(e.Operation),
			FAQID:     e.FAQID,
			Actor:     e.Actor,
			Summary:   e.Summary,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"items":       items,
		"next_cursor": nextCursor,
	})
}

func (h *KBHandler) AcknowledgeReindex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AcknowledgeReindex(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]bool{"acknowledged": true})
}
