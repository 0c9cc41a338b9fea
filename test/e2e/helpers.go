//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deskmind/deskmind/internal/api/handlers"
	"github.com/deskmind/deskmind/internal/repository"
	"github.com/deskmind/deskmind/internal/server"
	"github.com/deskmind/deskmind/internal/service"
	"github.com/deskmind/deskmind/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CannedAnswer is what the stub answerer returns for every generation.
const CannedAnswer = "Based on the knowledge base articles above, restart the affected service and retry."

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a pgvector
// container and an HTTP server wired over real repositories. Embedding
// and answer generation use deterministic stubs so tests never call out.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body, nil)
}

// PostAs performs a POST request with an X-Actor header
func (e *E2ETestEnv) PostAs(path string, body interface{}, actor string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, map[string]string{"X-Actor": actor})
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, nil)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, headers map[string]string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// topicEmbedder maps text to a one-hot vector per support topic, so
// entries and questions about the same topic land at cosine distance 0
// and unrelated ones at distance 1. Deterministic and offline.
type topicEmbedder struct{}

var topics = []string{"vpn", "printer", "password"}

func (e *topicEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(topics)+1)
	lower := strings.ToLower(text)
	for i, topic := range topics {
		if strings.Contains(lower, topic) {
			vec[i] = 1
			return vec, nil
		}
	}
	vec[len(topics)] = 1
	return vec, nil
}

// stubAnswerer returns a fixed answer for every completion.
type stubAnswerer struct{}

func (a *stubAnswerer) Complete(ctx context.Context, messages []service.Message, temperature float64) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	return CannedAnswer, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	faqRepo := repository.NewFAQRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	stateRepo := repository.NewStateRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	store := service.NewFAQStore(faqRepo, &topicEmbedder{})
	conversationSvc := service.NewConversationService(sessionRepo, 20)
	queryLogSvc := service.NewQueryLogService(queryLogRepo, feedbackRepo, txRunner)
	adminSvc := service.NewAdminService(store, auditRepo, stateRepo, txRunner, 3)

	pipeline := service.NewPipeline(
		store,
		&stubAnswerer{},
		conversationSvc,
		queryLogSvc,
		service.NewPromptBuilder(3000),
		service.DefaultPipelineConfig(),
	)

	cfg := server.RouterConfig{
		ChatHandler:     handlers.NewChatHandler(pipeline, store),
		SessionHandler:  handlers.NewSessionHandler(conversationSvc),
		KBHandler:       handlers.NewKBHandler(adminSvc),
		FeedbackHandler: handlers.NewFeedbackHandler(queryLogSvc),
		LogsHandler:     handlers.NewLogsHandler(queryLogSvc),
	}

	router := server.NewRouter(cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// SeedTopic adds n knowledge entries about the given topic via the API.
func (e *E2ETestEnv) SeedTopic(topic string, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		resp, err := e.Post("/kb/", map[string]interface{}{
			"title": fmt.Sprintf("%s troubleshooting %d", topic, i+1),
			"body":  fmt.Sprintf("Steps to resolve common %s issues, part %d.", topic, i+1),
			"tags":  []string{topic},
		})
		if err != nil {
			e.T.Fatalf("failed to seed %s entry: %v", topic, err)
		}
		var mutation struct {
			Success bool   `json:"success"`
			ID      string `json:"id"`
		}
		if err := json.Unmarshal(resp.Data, &mutation); err != nil {
			e.T.Fatalf("failed to parse mutation response: %v", err)
		}
		if !mutation.Success {
			e.T.Fatalf("seeding %s entry failed", topic)
		}
		ids = append(ids, mutation.ID)
	}
	return ids
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
