package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/deskmind/deskmind/internal/api"
	"github.com/deskmind/deskmind/internal/service"
)

type PipelineService interface {
	AnswerQuery(ctx context.Context, question, sessionID string) (*service.AnswerResult, error)
}

type SearchService interface {
	Search(ctx context.Context, query string, k int) ([]*service.SearchHit, error)
}

type ChatHandler struct {
	pipeline PipelineService
	search   SearchService
}

func NewChatHandler(pipeline PipelineService, search SearchService) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, search: search}
}

type QueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type CitationResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

type QueryResponse struct {
	Answer             string             `json:"answer"`
	Citations          []CitationResponse `json:"citations"`
	ConfidenceLevel    string             `json:"confidence_level"`
	LogID              string             `json:"log_id,omitempty"`
	GenerationDegraded bool               `json:"generation_degraded"`
	LatencyMs          int64              `json:"latency_ms"`
}

type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type SearchHitResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	Snippet    string   `json:"snippet"`
	Similarity float64  `json:"similarity"`
	Distance   float64  `json:"distance"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.pipeline.AnswerQuery(r.Context(), req.Question, req.SessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	citations := make([]CitationResponse, 0, len(result.Citations))
	for _, c := range result.Citations {
		citations = append(citations, CitationResponse{ID: c.ID, Title: c.Title, Similarity: c.Similarity})
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Answer:             result.Answer,
		Citations:          citations,
		ConfidenceLevel:    string(result.Confidence),
		LogID:              result.LogID,
		GenerationDegraded: result.GenerationDegraded,
		LatencyMs:          result.LatencyMs,
	})
}

func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	hits, err := h.search.Search(r.Context(), req.Query, req.K)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]SearchHitResponse, 0, len(hits))
	for _, hit := range hits {
		tags := hit.Tags
		if tags == nil {
			tags = []string{}
		}
		results = append(results, SearchHitResponse{
			ID:         hit.ID,
			Title:      hit.Title,
			Tags:       tags,
			Snippet:    hit.Snippet,
			Similarity: hit.Similarity,
			Distance:   hit.Distance,
		})
	}

	api.Success(w, http.StatusOK, map[string]interface{}{"results": results})
}
