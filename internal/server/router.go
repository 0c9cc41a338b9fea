package server

import (
	"net/http"

	"github.com/deskmind/deskmind/internal/api"
	"github.com/deskmind/deskmind/internal/api/handlers"
	"github.com/deskmind/deskmind/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	ChatHandler     *handlers.ChatHandler
	SessionHandler  *handlers.SessionHandler
	KBHandler       *handlers.KBHandler
	FeedbackHandler *handlers.FeedbackHandler
	LogsHandler     *handlers.LogsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat/query", cfg.ChatHandler.Query)
	r.Post("/search", cfg.ChatHandler.Search)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", cfg.SessionHandler.Create)
		r.Get("/{id}/history", cfg.SessionHandler.History)
		r.Get("/{id}/stats", cfg.SessionHandler.Stats)
		r.Delete("/{id}", cfg.SessionHandler.Clear)
	})

	r.Route("/kb", func(r chi.Router) {
		r.Post("/", cfg.KBHandler.Add)
		r.Get("/{id}", cfg.KBHandler.Get)
		r.Put("/{id}", cfg.KBHandler.Update)
		r.Delete("/{id}", cfg.KBHandler.Delete)
		r.Post("/bulk", cfg.KBHandler.BulkAdd)
		r.Get("/status", cfg.KBHandler.Status)
		r.Get("/audit", cfg.KBHandler.Audit)
		r.Post("/reindex/ack", cfg.KBHandler.AcknowledgeReindex)
	})

	r.Route("/feedback", func(r chi.Router) {
		r.Post("/", cfg.FeedbackHandler.Record)
		r.Get("/pending", cfg.FeedbackHandler.ListPending)
		r.Post("/{id}/review", cfg.FeedbackHandler.Review)
	})

	r.Route("/logs", func(r chi.Router) {
		r.Get("/recent", cfg.LogsHandler.Recent)
		r.Get("/analytics", cfg.LogsHandler.Analytics)
	})

	return r
}
