package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deskmind/deskmind/internal/api/handlers"
	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) AnswerQuery(ctx context.Context, question, sessionID string) (*service.AnswerResult, error) {
	args := m.Called(ctx, question, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerResult), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, k int) ([]*service.SearchHit, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.SearchHit), args.Error(1)
}

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) StartSession(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockConversationService) History(ctx context.Context, sessionID string) ([]*domain.Turn, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Turn), args.Error(1)
}

func (m *MockConversationService) Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionStats), args.Error(1)
}

func (m *MockConversationService) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) AddFAQ(ctx context.Context, input service.AddEntryInput, actor string) *service.MutationResult {
	args := m.Called(ctx, input, actor)
	return args.Get(0).(*service.MutationResult)
}

func (m *MockAdminService) UpdateFAQ(ctx context.Context, id, title, body string, tags []string, actor string) *service.MutationResult {
	args := m.Called(ctx, id, title, body, tags, actor)
	return args.Get(0).(*service.MutationResult)
}

func (m *MockAdminService) DeleteFAQ(ctx context.Context, id, actor string) *service.MutationResult {
	args := m.Called(ctx, id, actor)
	return args.Get(0).(*service.MutationResult)
}

func (m *MockAdminService) GetFAQ(ctx context.Context, id string) (*domain.FAQ, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FAQ), args.Error(1)
}

func (m *MockAdminService) BulkAdd(ctx context.Context, inputs []service.AddEntryInput, actor string) *service.BulkResult {
	args := m.Called(ctx, inputs, actor)
	return args.Get(0).(*service.BulkResult)
}

func (m *MockAdminService) Status(ctx context.Context) (*service.KBStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.KBStatus), args.Error(1)
}

func (m *MockAdminService) ListAudit(ctx context.Context, cursor string, limit int) ([]*domain.AuditEntry, string, error) {
	args := m.Called(ctx, cursor, limit)
	var items []*domain.AuditEntry
	if args.Get(0) != nil {
		items = args.Get(0).([]*domain.AuditEntry)
	}
	return items, args.String(1), args.Error(2)
}

func (m *MockAdminService) AcknowledgeReindex(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

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

type MockQueryLogService struct {
	mock.Mock
}

func (m *MockQueryLogService) ListRecent(ctx context.Context, cursor string, limit int) ([]*domain.QueryLog, string, error) {
	args := m.Called(ctx, cursor, limit)
	var items []*domain.QueryLog
	if args.Get(0) != nil {
		items = args.Get(0).([]*domain.QueryLog)
	}
	return items, args.String(1), args.Error(2)
}

func (m *MockQueryLogService) Analytics(ctx context.Context) (*service.QueryAnalytics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryAnalytics), args.Error(1)
}

type routerFixture struct {
	pipeline     *MockPipelineService
	search       *MockSearchService
	conversation *MockConversationService
	admin        *MockAdminService
	feedback     *MockFeedbackService
	logs         *MockQueryLogService
	router       http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		pipeline:     new(MockPipelineService),
		search:       new(MockSearchService),
		conversation: new(MockConversationService),
		admin:        new(MockAdminService),
		feedback:     new(MockFeedbackService),
		logs:         new(MockQueryLogService),
	}
	f.router = NewRouter(RouterConfig{
		ChatHandler:     handlers.NewChatHandler(f.pipeline, f.search),
		SessionHandler:  handlers.NewSessionHandler(f.conversation),
		KBHandler:       handlers.NewKBHandler(f.admin),
		FeedbackHandler: handlers.NewFeedbackHandler(f.feedback),
		LogsHandler:     handlers.NewLogsHandler(f.logs),
	})
	return f
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ok", envelope.Data["status"])
}

func TestRouter_ChatQueryDispatch(t *testing.T) {
	f := newRouterFixture()

	f.pipeline.On("AnswerQuery", mock.Anything, "vpn down", "").Return(&service.AnswerResult{
		Answer:     "Reinstall the client.",
		Confidence: domain.ConfidenceHigh,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/query", bytes.NewReader([]byte(`{"question":"vpn down"}`)))
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.pipeline.AssertExpectations(t)
}

func TestRouter_SessionURLParams(t *testing.T) {
	f := newRouterFixture()

	f.conversation.On("Clear", mock.Anything, "session-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/session-1", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.conversation.AssertExpectations(t)
}

func TestRouter_KBStatusDispatch(t *testing.T) {
	f := newRouterFixture()

	f.admin.On("Status", mock.Anything).Return(&service.KBStatus{
		EntryCount: 3, Status: "ready", ReindexThreshold: 10,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/kb/status", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_BodyLimit(t *testing.T) {
	f := newRouterFixture()

	oversized := `{"question":"` + strings.Repeat("a", 2*1024*1024) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/query", strings.NewReader(oversized))
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	f.pipeline.AssertNotCalled(t, "AnswerQuery", mock.Anything, mock.Anything, mock.Anything)
}
